package backend

import "testing"

func TestDelegateStrings(t *testing.T) {
	tests := []struct {
		d         Delegate
		name      string
		precision string
	}{
		{CPU, "cpu", "fp32"},
		{Accelerated, "accelerated", "fp16"},
	}
	for _, tt := range tests {
		if tt.d.String() != tt.name || tt.d.Precision() != tt.precision {
			t.Errorf("%d: got %s/%s", tt.d, tt.d.String(), tt.d.Precision())
		}
	}
	if Delegate(9).String() != "delegate(9)" {
		t.Errorf("unknown delegate string = %s", Delegate(9))
	}
}

func TestStatusDeviceLost(t *testing.T) {
	for _, s := range []Status{StatusOK, StatusLoadFailed, StatusBadInput, StatusExtractFailed} {
		if s.DeviceLost() {
			t.Errorf("status %d reported as device lost", s)
		}
	}
	if !StatusDeviceLost.DeviceLost() {
		t.Error("StatusDeviceLost not reported as device lost")
	}
}
