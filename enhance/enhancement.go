package enhance

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"go_enhance/tensor"
)

// enhancementStage brightens low-light images and blends the result with
// its input by strength.
type enhancementStage struct {
	cfg   EnhancementConfig
	model *model
}

func (s *enhancementStage) Name() string { return StageEnhancement }

func (s *enhancementStage) shouldTile(in *tensor.Planar) bool {
	pixels := in.Pixels()
	return pixels > s.cfg.AreaThreshold || float64(pixels)/1e6 > s.cfg.MegapixelThreshold
}

func (s *enhancementStage) Run(in *tensor.Planar, strength float32, rc *runContext) (out *tensor.Planar, st StageTelemetry, err error) {
	st = newStageTelemetry(StageEnhancement, s.model)
	start := time.Now()
	defer finishStage(&st, start)

	if rc.cancelled() {
		return nil, st, ErrCancelled
	}

	work := in
	w, h, scaled := tensor.FitWithin(in.Width, in.Height, s.cfg.MaxSide)
	if scaled {
		rc.logger.Debug("downsampling before enhancement",
			zap.Int("from_width", in.Width), zap.Int("from_height", in.Height),
			zap.Int("to_width", w), zap.Int("to_height", h),
		)
		work = tensor.Resize(in, w, h, draw.CatmullRom)
		st.Scaled = true
	}

	enhanced, err := s.model.execute(StageEnhancement, work, s.cfg.Tile, s.shouldTile(work), rc, &st)
	if err != nil {
		return nil, st, err
	}
	if rc.cancelled() {
		return nil, st, ErrCancelled
	}
	if scaled {
		enhanced = tensor.Resize(enhanced, in.Width, in.Height, draw.CatmullRom)
	}

	return mix(in, enhanced, strength), st, nil
}

// mix returns in*(1-s) + enhanced*s with s clamped to [0,1]. NaN counts as 0.
func mix(in, enhanced *tensor.Planar, s float32) *tensor.Planar {
	if s != s {
		s = 0
	}
	s = min(max(s, 0), 1)
	out := tensor.New(in.Width, in.Height, in.Channels)
	for i, v := range in.Data {
		out.Data[i] = v*(1-s) + enhanced.Data[i]*s
	}
	return out
}
