package models

import "time"

// DateLayout is the calendar date format used for keys and query parameters.
const DateLayout = "2006-01-02"

const (
	// CalendarCells количество ячеек в сетке месяца (6 недель)
	CalendarCells = 42

	// DayPreviewLimit сколько бронирований показывать в ячейке дня
	DayPreviewLimit = 3

	// DefaultMaxOccurrencesPerSeries ограничение на разворачивание одной серии
	DefaultMaxOccurrencesPerSeries = 5000

	// MaxProfileImageBytes максимальный размер загружаемого изображения профиля
	MaxProfileImageBytes = 10 << 20

	// MaxProfileImagePixels максимальное число пикселей по заголовку изображения
	MaxProfileImagePixels = 40_000_000

	// ProfileImageMaxSide максимальная сторона сжатого изображения
	ProfileImageMaxSide = 800

	// ProfileImageQuality качество JPEG после сжатия
	ProfileImageQuality = 80

	// WorkerQueueSize размер очереди воркера предзагрузки
	WorkerQueueSize = 64
)

const (
	// DefaultSnapshotTTL время жизни снимка ответа API в кэше
	DefaultSnapshotTTL = 5 * time.Minute

	// DefaultViewCacheTTL время жизни собранного представления месяца
	DefaultViewCacheTTL = 30 * time.Second
)
