package dice

import "go.uber.org/zap"

// Roller wraps a Source and logs every draw at debug level. Roller itself
// satisfies Source, so it can be threaded through every resolution function
// in place of the raw source.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	if src == nil || logger == nil {
		panic("dice: NewLoggedRoller precondition violated: src and logger must be non-nil")
	}
	return &Roller{src: src, logger: logger}
}

// Intn draws from the wrapped source and logs the raw draw at debug level.
func (r *Roller) Intn(n int) int {
	v := r.src.Intn(n)
	r.logger.Debug("dice draw", zap.Int("faces", n), zap.Int("value", v+1))
	return v
}
