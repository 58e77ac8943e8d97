package hardmine

import (
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"os"
	"path/filepath"
	"testing"

	"github.com/esimov/hardmine/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImage_ImgToNRGBA(t *testing.T) {
	rect := image.Rect(-1, -1, 15, 15)
	colors := palette.Plan9
	testCases := []struct {
		name string
		img  image.Image
	}{
		{
			name: "NRGBA",
			img:  makeNRGBAImage(rect, colors),
		},
		{
			name: "YCbCr-444",
			img:  makeYCbCrImage(rect, colors, image.YCbCrSubsampleRatio444),
		},
		{
			name: "YCbCr-420",
			img:  makeYCbCrImage(rect, colors, image.YCbCrSubsampleRatio420),
		},
		{
			name: "Gray",
			img:  makeGrayImage(rect),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src := tc.img.Bounds()
			dst := imgToNRGBA(tc.img)

			assert.Equal(t, image.Pt(0, 0), dst.Bounds().Min)
			assert.Equal(t, src.Dx(), dst.Bounds().Dx())
			assert.Equal(t, src.Dy(), dst.Bounds().Dy())

			for y := src.Min.Y; y < src.Max.Y; y++ {
				got := readRow(dst, y-src.Min.Y)
				want := readRow(tc.img, y)
				if !compareBytes(got, want, 1) {
					t.Errorf("row y=%d: got %v want %v", y, got, want)
				}
			}
		})
	}
}

func TestImage_ImgToNRGBAReturnsZeroOriginNRGBA(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	assert.Same(t, img, imgToNRGBA(img))
}

func TestImage_CropResize(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)
	red := color.NRGBA{R: 0xff, A: 0xff}
	draw.Draw(img, image.Rect(10, 10, 40, 40), &image.Uniform{red}, image.Point{}, draw.Src)

	out := cropResize(img, Box{X1: 10, Y1: 10, X2: 39, Y2: 39}, 24)
	assert.Equal(t, image.Rect(0, 0, 24, 24), out.Bounds())

	// The crop covers the red square only, so the resize must stay red.
	for y := 0; y < 24; y++ {
		for x := 0; x < 24; x++ {
			assert.Equal(t, red, out.NRGBAAt(x, y))
		}
	}
}

func TestImage_EncodeDecode(t *testing.T) {
	dir := t.TempDir()
	img := makeNRGBAImage(image.Rect(0, 0, 16, 16), palette.WebSafe)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}

	for _, ext := range []string{".png", ".bmp", ".jpg"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(dir, "sample"+ext)
			require.NoError(t, saveImg(path, img, 90))

			dec, err := decodeImg(path)
			require.NoError(t, err)
			assert.Equal(t, img.Bounds(), dec.Bounds())
			if ext != ".jpg" {
				assert.Equal(t, img.Pix, dec.Pix)
			}
		})
	}
}

func TestImage_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.webp")
	err := saveImg(path, image.NewNRGBA(image.Rect(0, 0, 2, 2)), 0)
	assert.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "a failed encode must not leave a file behind")
}

func TestImage_DecodeRejectsNonImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("not an image at all"), 0644))

	_, err := decodeImg(path)
	assert.Error(t, err)
}

func TestImage_Grayscale(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.NRGBA{177, 177, 177, 255}}, image.Point{}, draw.Src)

	gray := rgbToGrayscale(img)
	require.Len(t, gray, 6)
	for _, g := range gray {
		assert.InDelta(t, 177, int(g), 1)
	}
}

func makeYCbCrImage(rect image.Rectangle, colors []color.Color, sr image.YCbCrSubsampleRatio) *image.YCbCr {
	img := image.NewYCbCr(rect, sr)
	j := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			iy := img.YOffset(x, y)
			ic := img.COffset(x, y)
			c := color.NRGBAModel.Convert(colors[j]).(color.NRGBA)
			img.Y[iy], img.Cb[ic], img.Cr[ic] = color.RGBToYCbCr(c.R, c.G, c.B)
			j++
		}
	}
	return img
}

func makeNRGBAImage(rect image.Rectangle, colors []color.Color) *image.NRGBA {
	img := image.NewNRGBA(rect)
	fillDrawImage(img, colors)
	return img
}

func makeGrayImage(rect image.Rectangle) *image.Gray {
	img := image.NewGray(rect)
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	return img
}

func fillDrawImage(img draw.Image, colors []color.Color) {
	colorsNRGBA := make([]color.NRGBA, len(colors))
	for i, c := range colors {
		nrgba := color.NRGBAModel.Convert(c).(color.NRGBA)
		nrgba.A = uint8(i % 256)
		colorsNRGBA[i] = nrgba
	}
	rect := img.Bounds()
	i := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.Set(x, y, colorsNRGBA[i%len(colorsNRGBA)])
			i++
		}
	}
}

func readRow(img image.Image, y int) []uint8 {
	row := make([]byte, img.Bounds().Dx()*4)
	i := 0
	for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
		c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
		row[i+0] = c.R
		row[i+1] = c.G
		row[i+2] = c.B
		row[i+3] = c.A
		i += 4
	}
	return row
}

func compareBytes(a, b []uint8, delta int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if utils.Abs(int(a[i])-int(b[i])) > delta {
			return false
		}
	}
	return true
}
