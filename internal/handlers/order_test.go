package handlers

import (
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/example/rrdigi/internal/models"
)

func fileHeader(name, contentType string, size int64) *multipart.FileHeader {
	return &multipart.FileHeader{
		Filename: name,
		Size:     size,
		Header:   textproto.MIMEHeader{"Content-Type": []string{contentType}},
	}
}

func TestValidateOrderFilesAcceptsImagesAndPdf(t *testing.T) {
	uploads := []*multipart.FileHeader{
		fileHeader("flyer.png", "image/png", 1024),
		fileHeader("art.jpeg", "image/jpeg", maxOrderFileSize),
		fileHeader("proof.pdf", "application/pdf", 2048),
	}
	if err := validateOrderFiles(uploads); err != nil {
		t.Fatalf("expected valid uploads, got %v", err)
	}
}

func TestValidateOrderFilesRejectsTooMany(t *testing.T) {
	uploads := make([]*multipart.FileHeader, maxOrderFiles+1)
	for i := range uploads {
		uploads[i] = fileHeader("a.png", "image/png", 100)
	}
	err := validateOrderFiles(uploads)
	assertFiberStatus(t, err, fiber.StatusBadRequest)
}

func TestValidateOrderFilesRejectsOversize(t *testing.T) {
	uploads := []*multipart.FileHeader{fileHeader("big.png", "image/png", maxOrderFileSize+1)}
	err := validateOrderFiles(uploads)
	assertFiberStatus(t, err, fiber.StatusRequestEntityTooLarge)
}

func TestValidateOrderFilesRejectsDisallowedType(t *testing.T) {
	uploads := []*multipart.FileHeader{fileHeader("macro.docm", "application/msword", 100)}
	err := validateOrderFiles(uploads)
	assertFiberStatus(t, err, fiber.StatusBadRequest)
}

func assertFiberStatus(t *testing.T, err error, want int) {
	t.Helper()
	ferr, ok := err.(*fiber.Error)
	if !ok {
		t.Fatalf("expected *fiber.Error, got %v", err)
	}
	if ferr.Code != want {
		t.Fatalf("status = %d, want %d", ferr.Code, want)
	}
}

func TestAllowedUploadType(t *testing.T) {
	cases := []struct {
		mime string
		ok   bool
	}{
		{"image/png", true},
		{"image/svg+xml", true},
		{"application/pdf", true},
		{"application/zip", false},
		{"text/html", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := allowedUploadType(tc.mime); got != tc.ok {
			t.Errorf("allowedUploadType(%q) = %v, want %v", tc.mime, got, tc.ok)
		}
	}
}

func TestOrderResponseFilesDecoding(t *testing.T) {
	withFiles := models.Order{Files: []byte(`[{"filename":"1-a.png","path":"/uploads/1-a.png","originalname":"a.png","mimetype":"image/png","size":1024}]`)}
	resp := orderResponse(&withFiles)
	files, ok := resp["files"].([]models.OrderFile)
	if !ok || len(files) != 1 || files[0].OriginalName != "a.png" {
		t.Fatalf("unexpected files: %#v", resp["files"])
	}

	// A corrupt blob must degrade to an empty list, not break the listing.
	corrupt := models.Order{Files: []byte(`{not json`)}
	resp = orderResponse(&corrupt)
	files, ok = resp["files"].([]models.OrderFile)
	if !ok || len(files) != 0 {
		t.Fatalf("expected empty files for corrupt blob, got %#v", resp["files"])
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"poster final.png", "poster_final.png"},
		{"../../etc/passwd", "passwd"},
		{"naïve✓.pdf", "na_ve_.pdf"},
		{"safe-name_1.jpg", "safe-name_1.jpg"},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
