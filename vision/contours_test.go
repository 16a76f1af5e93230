package vision

import (
	"image"
	"reflect"
	"testing"
)

func maskFromRows(rows []string) *Mask {
	mask := NewMask(len(rows[0]), len(rows))
	for y, row := range rows {
		for x, c := range row {
			if c == '#' {
				mask.Set(x, y, true)
			}
		}
	}
	return mask
}

func TestExternalContoursSquare(t *testing.T) {
	mask := maskFromRows([]string{
		".....",
		".###.",
		".###.",
		".###.",
		".....",
	})
	contours := ExternalContours(mask)
	if len(contours) != 1 {
		t.Fatalf("Expected 1 contour, got %d", len(contours))
	}
	correct := []image.Point{{1, 1}, {3, 1}, {3, 3}, {1, 3}}
	if !reflect.DeepEqual(contours[0], correct) {
		t.Errorf("Contour should be %v, but got %v", correct, contours[0])
	}
	if area := ContourArea(contours[0]); area != 4 {
		t.Errorf("Area should be 4, but got %f", area)
	}
}

func TestExternalContoursIgnoreHoles(t *testing.T) {
	mask := maskFromRows([]string{
		".........",
		".#######.",
		".#.....#.",
		".#.....#.",
		".#..#..#.",
		".#.....#.",
		".#.....#.",
		".#######.",
		".........",
	})
	contours := ExternalContours(mask)
	if len(contours) != 1 {
		t.Fatalf("Expected only outer ring contour, got %d contours", len(contours))
	}
	if area := ContourArea(contours[0]); area != 36 {
		t.Errorf("Ring area should be 36, but got %f", area)
	}
}

func TestExternalContoursSeveralRegions(t *testing.T) {
	mask := maskFromRows([]string{
		"#.....",
		"......",
		"..##..",
		"..##..",
		"......",
	})
	contours := ExternalContours(mask)
	if len(contours) != 2 {
		t.Fatalf("Expected 2 contours, got %d", len(contours))
	}
	if !reflect.DeepEqual(contours[0], []image.Point{{0, 0}}) {
		t.Errorf("First contour should be single pixel, got %v", contours[0])
	}
	if ContourArea(contours[0]) != 0 {
		t.Errorf("Single pixel contour should have zero area")
	}
	if area := ContourArea(contours[1]); area != 1 {
		t.Errorf("2x2 block area should be 1, but got %f", area)
	}
}

func TestExternalContoursDiagonal(t *testing.T) {
	mask := maskFromRows([]string{
		"#...",
		".#..",
		"..#.",
	})
	contours := ExternalContours(mask)
	if len(contours) != 1 {
		t.Fatalf("Diagonal pixels are 8-connected, expected 1 contour, got %d", len(contours))
	}
	correct := []image.Point{{0, 0}, {2, 2}}
	if !reflect.DeepEqual(contours[0], correct) {
		t.Errorf("Contour should be %v, but got %v", correct, contours[0])
	}
}

func TestExternalContoursEmpty(t *testing.T) {
	mask := NewMask(10, 10)
	if contours := ExternalContours(mask); len(contours) != 0 {
		t.Errorf("Empty mask should have no contours, got %d", len(contours))
	}
}

func TestExternalContoursZeroSize(t *testing.T) {
	for _, mask := range []*Mask{NewMask(0, 5), NewMask(5, 0), {Width: 4, Height: 4}} {
		if contours := ExternalContours(mask); len(contours) != 0 {
			t.Errorf("Mask %dx%d should have no contours, got %d", mask.Width, mask.Height, len(contours))
		}
	}
}
