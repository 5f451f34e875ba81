package enhance

import (
	"errors"
	"math"
	"testing"

	"go_enhance/backend"
	"go_enhance/logging"
	"go_enhance/tensor"
	"go_enhance/tiling"
)

func TestMixClampsStrength(t *testing.T) {
	in, _ := tensor.FromData(2, 1, 1, []float32{0.2, 0.4})
	enh, _ := tensor.FromData(2, 1, 1, []float32{1, 1})

	tests := []struct {
		s    float32
		want []float32
	}{
		{0, []float32{0.2, 0.4}},
		{1, []float32{1, 1}},
		{0.5, []float32{0.6, 0.7}},
		{-3, []float32{0.2, 0.4}},
		{7, []float32{1, 1}},
		{float32(math.NaN()), []float32{0.2, 0.4}},
	}
	for _, tt := range tests {
		out := mix(in, enh, tt.s)
		for i := range tt.want {
			if math.Abs(float64(out.Data[i]-tt.want[i])) > 1e-6 {
				t.Errorf("mix(s=%v)[%d] = %v, want %v", tt.s, i, out.Data[i], tt.want[i])
			}
		}
	}
}

func TestStageTilingTriggers(t *testing.T) {
	cfg := DefaultStageConfig()
	r := &restorationStage{cfg: cfg.Restoration}
	if r.shouldTile(tensor.New(512, 512, 3)) {
		t.Error("restoration tiles an image equal to its tile size")
	}
	if !r.shouldTile(tensor.New(513, 10, 3)) {
		t.Error("restoration does not tile a wide image")
	}

	e := &enhancementStage{cfg: cfg.Enhancement}
	if e.shouldTile(tensor.New(700, 700, 3)) {
		t.Error("enhancement tiles 0.49 MP")
	}
	if !e.shouldTile(tensor.New(800, 800, 3)) {
		t.Error("enhancement does not tile 0.64 MP above the area threshold")
	}

	e.cfg.AreaThreshold = 1 << 30
	if !e.shouldTile(tensor.New(1100, 1000, 3)) {
		t.Error("megapixel threshold ignored")
	}
}

func TestRestorationStageCancelledBeforeStart(t *testing.T) {
	f := newFakeFactory(false)
	b, _ := f.New(backend.Restormer, backend.CPU)
	s := &restorationStage{cfg: DefaultStageConfig().Restoration, model: &model{name: backend.Restormer, backend: b}}

	rc := &runContext{cancel: &CancelToken{}, tel: &RunTelemetry{}, logger: logging.NewNop(), attempts: 3}
	rc.cancel.Cancel()
	_, st, err := s.Run(tensor.New(8, 8, 3), 1, rc)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if st.Stage != StageRestoration {
		t.Errorf("stage telemetry = %+v", st)
	}
	if f.callCount(backend.Restormer) != 0 {
		t.Error("backend called after cancellation")
	}
}

func TestRestorationUsesZeroPaddedTiles(t *testing.T) {
	f := newFakeFactory(false)
	var shapes [][2]int
	f.forward = func(m backend.Model, d backend.Delegate, in *tensor.Planar) (*tensor.Planar, backend.Status) {
		shapes = append(shapes, [2]int{in.Width, in.Height})
		return in.Clone(), backend.StatusOK
	}
	b, _ := f.New(backend.Restormer, backend.CPU)
	cfg := RestorationConfig{Tile: tiling.Config{TileSize: 32, Overlap: 4, WindowEnabled: true}}
	s := &restorationStage{cfg: cfg, model: &model{name: backend.Restormer, backend: b}}

	rc := &runContext{cancel: &CancelToken{}, tel: &RunTelemetry{}, logger: logging.NewNop(), attempts: 1}
	in := testImage(50, 20)
	out, st, err := s.Run(in, 1, rc)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Tiles.Used || st.Tiles.Total != 3 {
		t.Errorf("tiles = %+v", st.Tiles)
	}
	for _, sh := range shapes {
		if sh != [2]int{32, 32} {
			t.Errorf("backend received %v, want fixed 32x32 tiles", sh)
		}
	}
	for i := range in.Data {
		if math.Abs(float64(out.Data[i]-in.Data[i])) > 1e-5 {
			t.Fatalf("identity restoration changed Data[%d]", i)
		}
	}
}

func TestStageErrorMessage(t *testing.T) {
	err := &StageError{Stage: StageEnhancement, Op: "inference", Code: backend.StatusDeviceLost, DelegateFailed: true, Err: errors.New("boom")}
	want := "enhance: enhancement inference failed (status -4) on accelerated delegate: boom"
	if err.Error() != want {
		t.Errorf("Error() = %q", err.Error())
	}
}
