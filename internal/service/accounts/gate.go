package accounts

import "context"

// ConcurrencyGate ограничивает число воркеров, одновременно выполняющих цикл
// мониторинга. Воркеры не разделяют изменяемое состояние, гейт является
// единственной общей точкой и служит только координации.
//
// Семантика: Acquire блокируется до получения места или отмены контекста и
// возвращает release-функцию, которую нужно вызвать ровно один раз.
// Лимит 0 означает «без ограничения»: Acquire успешен немедленно.
type ConcurrencyGate struct {
	sem chan struct{}
}

// NewConcurrencyGate создает гейт с указанным лимитом (0 = без ограничения)
func NewConcurrencyGate(limit int) *ConcurrencyGate {
	if limit <= 0 {
		return &ConcurrencyGate{}
	}
	return &ConcurrencyGate{sem: make(chan struct{}, limit)}
}

// Acquire занимает место в гейте. Возвращает (release, ok);
// ok=false означает, что контекст был отменен и место не занято.
// Канальный буфер гарантирует, что число невозвращенных мест
// никогда не превышает лимит.
func (g *ConcurrencyGate) Acquire(ctx context.Context) (func(), bool) {
	if g.sem == nil {
		return func() {}, true
	}

	select {
	case g.sem <- struct{}{}:
		return func() { <-g.sem }, true
	case <-ctx.Done():
		return nil, false
	}
}
