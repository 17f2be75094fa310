package domain

// Time format constants
const (
	TimeFormat = "15:04"      // HH:MM
	DateFormat = "2006-01-02" // YYYY-MM-DD
)

// Default program configuration values
const (
	DefaultSlotsPerType        = 1
	DefaultPollIntervalMinSecs = 180 // 3 minutes
	DefaultPollIntervalMaxSecs = 300 // 5 minutes
	DefaultStaggerSeconds      = 30  // задержка между стартами воркеров
	DefaultBlackoutStart       = "03:00"
	DefaultBlackoutEnd         = "06:00"
)

// Business validation constants
const (
	MinPollIntervalSecs = 30
	MaxPollIntervalSecs = 3600
	MinLessonsPerDay    = 1
	MaxLessonsPerDay    = 10
)
