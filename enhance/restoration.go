package enhance

import (
	"time"

	"go_enhance/tensor"
)

// restorationStage removes noise and blur. It tiles whenever either side
// exceeds the tile size; its network is never run on a rescaled image.
type restorationStage struct {
	cfg   RestorationConfig
	model *model
}

func (s *restorationStage) Name() string { return StageRestoration }

func (s *restorationStage) shouldTile(in *tensor.Planar) bool {
	return in.Width > s.cfg.Tile.TileSize || in.Height > s.cfg.Tile.TileSize
}

func (s *restorationStage) Run(in *tensor.Planar, _ float32, rc *runContext) (out *tensor.Planar, st StageTelemetry, err error) {
	st = newStageTelemetry(StageRestoration, s.model)
	start := time.Now()
	defer finishStage(&st, start)

	if rc.cancelled() {
		return nil, st, ErrCancelled
	}
	out, err = s.model.execute(StageRestoration, in, s.cfg.Tile, s.shouldTile(in), rc, &st)
	return out, st, err
}
