package imageproc

import (
	"bytes"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/UnendingLoop/ImageStore/internal/model"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func testImageReader(t *testing.T, w, h int, format imaging.Format) *bytes.Reader {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 100, G: 100, B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	err := imaging.Encode(&buf, img, format)
	require.NoError(t, err)

	return bytes.NewReader(buf.Bytes())
}

func mustDecode(t *testing.T, r io.Reader) image.Image {
	t.Helper()

	img, err := imaging.Decode(r)
	require.NoError(t, err)
	require.NotNil(t, img)

	return img
}

func TestResizer(t *testing.T) {
	tests := []struct {
		name         string
		reader       io.Reader
		x, y         int
		wantW, wantH int
		wantErr      bool
	}{
		{
			name:   "width bound keeps ratio",
			reader: testImageReader(t, 200, 100, imaging.PNG),
			x:      50,
			wantW:  50,
			wantH:  25,
		},
		{
			name:   "fit into box",
			reader: testImageReader(t, 200, 100, imaging.JPEG),
			x:      50,
			y:      50,
			wantW:  50,
			wantH:  25,
		},
		{
			name:   "no upscale",
			reader: testImageReader(t, 40, 20, imaging.PNG),
			x:      480,
			wantW:  40,
			wantH:  20,
		},
		{
			name:    "nil reader",
			reader:  nil,
			x:       50,
			wantErr: true,
		},
		{
			name:    "no bounds",
			reader:  testImageReader(t, 40, 20, imaging.PNG),
			wantErr: true,
		},
		{
			name:    "broken image",
			reader:  bytes.NewReader([]byte("not-an-image")),
			x:       50,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, size, err := Resizer(tt.reader, tt.x, tt.y, imaging.PNG)

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, r)
			require.Greater(t, size, int64(0))

			img := mustDecode(t, r)
			require.Equal(t, tt.wantW, img.Bounds().Dx())
			require.Equal(t, tt.wantH, img.Bounds().Dy())
		})
	}
}

func TestThumbnailer(t *testing.T) {
	tests := []struct {
		name    string
		reader  io.Reader
		x, y    int
		wantErr bool
	}{
		{
			name:    "OK thumbnail",
			reader:  testImageReader(t, 300, 200, imaging.PNG),
			x:       100,
			y:       100,
			wantErr: false,
		},
		{
			name:    "nil reader",
			reader:  nil,
			x:       100,
			y:       100,
			wantErr: true,
		},
		{
			name:    "zero size",
			reader:  testImageReader(t, 300, 200, imaging.PNG),
			x:       0,
			y:       100,
			wantErr: true,
		},
		{
			name:    "broken image",
			reader:  bytes.NewReader([]byte("broken")),
			x:       100,
			y:       100,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, size, err := Thumbnailer(tt.reader, tt.x, tt.y, imaging.PNG)

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, r)
			require.Greater(t, size, int64(0))

			img := mustDecode(t, r)
			require.Equal(t, tt.x, img.Bounds().Dx())
			require.Equal(t, tt.y, img.Bounds().Dy())
		})
	}
}

func TestPreview(t *testing.T) {
	profile := model.TypeRules[model.TypeProfile]
	r, _, err := Preview(testImageReader(t, 300, 200, imaging.PNG), profile, imaging.PNG)
	require.NoError(t, err)
	img := mustDecode(t, r)
	require.Equal(t, profile.PreviewW, img.Bounds().Dx())
	require.Equal(t, profile.PreviewH, img.Bounds().Dy())

	post := model.TypeRules[model.TypePost]
	r, _, err = Preview(testImageReader(t, 960, 480, imaging.JPEG), post, imaging.JPEG)
	require.NoError(t, err)
	img = mustDecode(t, r)
	require.Equal(t, post.PreviewW, img.Bounds().Dx())
	require.Equal(t, 240, img.Bounds().Dy())

	_, _, err = Preview(testImageReader(t, 10, 10, imaging.PNG), model.TypeRules[model.TypeNotice], imaging.PNG)
	require.ErrorIs(t, err, model.ErrPreviewNotNeeded)
}
