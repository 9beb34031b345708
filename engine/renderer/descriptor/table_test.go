package descriptor

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu/headless"
	"github.com/gogpu/gputypes"
)

func newSurface(t *testing.T, d gpu.Device, width, height uint32, n int) gpu.Surface {
	t.Helper()
	s, err := d.CreateSurface(gpu.SurfaceConfig{
		Width:       width,
		Height:      height,
		BufferCount: n,
		Format:      gputypes.TextureFormatRGBA8Unorm,
		SampleCount: 1,
	})
	if err != nil {
		t.Fatalf("CreateSurface() error = %v", err)
	}
	return s
}

func TestTableOneViewPerSlot(t *testing.T) {
	d, err := headless.NewDevice()
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	defer d.Destroy()

	for n := 2; n <= 5; n++ {
		s := newSurface(t, d, 64, 64, n)
		tbl, err := NewTable(s)
		if err != nil {
			t.Fatalf("NewTable() error = %v", err)
		}
		if tbl.Len() != n {
			t.Errorf("Len() = %d, want %d", tbl.Len(), n)
		}
		for i := range n {
			v, err := tbl.View(i)
			if err != nil {
				t.Fatalf("View(%d) error = %v", i, err)
			}
			tex, _ := s.Texture(i)
			if v.Index() != i || v.Texture() != tex || v.Target().Texture() != tex {
				t.Errorf("View(%d) does not match ring slot %d", i, i)
			}
			if !v.Valid() || v.Generation() != 1 {
				t.Errorf("View(%d) valid=%v generation=%d", i, v.Valid(), v.Generation())
			}
		}
		for _, bad := range []int{-1, n} {
			if _, err := tbl.View(bad); !errors.Is(err, gpu.ErrRecording) {
				t.Errorf("View(%d) error = %v, want ErrRecording", bad, err)
			}
		}
	}
}

func TestRebuildInvalidatesOldViews(t *testing.T) {
	d, _ := headless.NewDevice()
	defer d.Destroy()

	tbl, err := NewTable(newSurface(t, d, 1280, 720, 3))
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	old, _ := tbl.View(1)

	resized := newSurface(t, d, 800, 600, 3)
	if err := tbl.Rebuild(resized); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if tbl.Len() != 3 || tbl.Generation() != 2 {
		t.Fatalf("after rebuild Len=%d Generation=%d, want 3 and 2", tbl.Len(), tbl.Generation())
	}
	if old.Valid() {
		t.Error("pre-rebuild view still valid")
	}
	fresh, _ := tbl.View(1)
	if !fresh.Valid() || fresh.Texture().Width() != 800 {
		t.Errorf("rebuilt view valid=%v width=%d", fresh.Valid(), fresh.Texture().Width())
	}

	tbl.Destroy()
	if fresh.Valid() {
		t.Error("view still valid after Destroy")
	}
	if _, err := tbl.View(0); !errors.Is(err, gpu.ErrRecording) {
		t.Errorf("View() after Destroy error = %v, want ErrRecording", err)
	}
}
