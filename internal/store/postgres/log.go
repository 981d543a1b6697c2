package postgres

import (
	"time"

	"github.com/rs/zerolog/log"
)

const slowQueryThreshold = 200 * time.Millisecond

// zerologWriter adapts gorm's Printf-style logger to the global zerolog logger.
type zerologWriter struct{}

func (zerologWriter) Printf(format string, args ...any) {
	log.Warn().Str("component", "gorm").Msgf(format, args...)
}
