package cdcclient

// siteDateFormat формат дат в ответах сайта ("08/Sep/2026")
const siteDateFormat = "02/Jan/2006"

// loginChallenge параметры капчи на странице логина
type loginChallenge struct {
	SiteKey string `json:"site_key"`
	PageURL string `json:"page_url"`
}

// loginRequest тело запроса аутентификации
type loginRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captcha_token"`
}

// slotsResponse ответ сайта со списком доступных слотов
type slotsResponse struct {
	Slots []slotPayload `json:"slots"`
}

// slotPayload один слот в сыром виде, как его отдает сайт
type slotPayload struct {
	ID        string `json:"id"`
	Date      string `json:"date"` // "02/Jan/2006"
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// bookedResponse ответ сайта со списком забронированных сессий
type bookedResponse struct {
	Sessions []bookedPayload `json:"sessions"`
}

// bookedPayload одна забронированная сессия
type bookedPayload struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Type      string `json:"type"`
}

// reserveResponse результат попытки бронирования
type reserveResponse struct {
	Status string `json:"status"` // "reserved" | "pending_confirmation"
}

// ErrorResponse модель ошибки от сайта
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
