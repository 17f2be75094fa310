package discord

// Цвета embed-сообщений
const (
	colorGreen  = 0x2ECC71 // успешное бронирование
	colorBlue   = 0x3498DB // информационная сводка
	colorRed    = 0xE74C3C // цикл завершился ошибкой
	colorOrange = 0xE67E22 // требуется ручное подтверждение
)

// webhookMessage тело запроса к Discord webhook
type webhookMessage struct {
	Content string  `json:"content,omitempty"`
	Embeds  []embed `json:"embeds,omitempty"`
}

// embed одно форматированное сообщение
type embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// embedField пара название-значение внутри embed
type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}
