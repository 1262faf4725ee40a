// ABOUTME: Multipart post upload for the fitfeed REST API.
// ABOUTME: Streams image files and a JSON items payload with API-fraction dot positions.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/onlyfashion/fitfeed/internal/models"
	"github.com/onlyfashion/fitfeed/internal/tagging"
)

// UploadItem is one clothing item attached to a new post. Position is in UI
// percentages; the wire format carries decimal fractions.
type UploadItem struct {
	Name        string
	Brand       string
	Price       string // display string as entered in the composer
	Link        string
	Description string
	Sizes       []string
	Position    tagging.Position
}

// UploadRequest is the input to UploadPost. Images are local file paths.
type UploadRequest struct {
	Images      []string
	Title       string
	Description string
	Items       []UploadItem
}

// UploadResult is the created post returned by the API.
type UploadResult struct {
	PostID    string
	UserID    string
	CreatedAt string
	Media     []string
}

// wireUploadItem is the JSON shape of one item inside the multipart "items"
// field, using the API's column names.
type wireUploadItem struct {
	ItemName string   `json:"item_name"`
	Brand    string   `json:"brand"`
	Price    int      `json:"price"`
	Currency string   `json:"currency"`
	Link     *string  `json:"link"`
	UserDesc *string  `json:"user_desc"`
	Sizes    []string `json:"sizes"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
}

// uploadEnvelope is the top-level response from POST /upload-post.
type uploadEnvelope struct {
	Post struct {
		ID        string `json:"id"`
		UserID    string `json:"user_id"`
		CreatedAt string `json:"created_at"`
	} `json:"post"`
	Media []string `json:"media"`
}

// UploadPost uploads a new outfit post with its images and tagged items.
func (c *Client) UploadPost(ctx context.Context, up UploadRequest) (*UploadResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for i, path := range up.Images {
		if err := writeImagePart(w, i, path); err != nil {
			return nil, err
		}
	}

	if err := w.WriteField("title", up.Title); err != nil {
		return nil, fmt.Errorf("failed to write title field: %w", err)
	}
	if err := w.WriteField("description", up.Description); err != nil {
		return nil, fmt.Errorf("failed to write description field: %w", err)
	}

	if len(up.Items) > 0 {
		items := make([]wireUploadItem, 0, len(up.Items))
		for _, it := range up.Items {
			items = append(items, toWireUploadItem(it))
		}
		itemsJSON, err := json.Marshal(items)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal items: %w", err)
		}
		if err := w.WriteField("items", string(itemsJSON)); err != nil {
			return nil, fmt.Errorf("failed to write items field: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, "POST", "/upload-post", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var env uploadEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	return &UploadResult{
		PostID:    env.Post.ID,
		UserID:    env.Post.UserID,
		CreatedAt: env.Post.CreatedAt,
		Media:     env.Media,
	}, nil
}

func toWireUploadItem(it UploadItem) wireUploadItem {
	wi := wireUploadItem{
		ItemName: it.Name,
		Brand:    it.Brand,
		Price:    models.ParsePriceCents(it.Price),
		Currency: "JPY",
		Sizes:    it.Sizes,
		X:        tagging.ToAPIFraction(it.Position.X),
		Y:        tagging.ToAPIFraction(it.Position.Y),
	}
	if wi.Brand == "" {
		wi.Brand = "Unknown"
	}
	if wi.Sizes == nil {
		wi.Sizes = []string{}
	}
	if it.Link != "" {
		wi.Link = &it.Link
	}
	if it.Description != "" {
		wi.UserDesc = &it.Description
	}
	return wi
}

// writeImagePart streams one image file into the multipart body with a mime
// type derived from the file extension.
func writeImagePart(w *multipart.Writer, index int, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		ext = "jpg"
	}
	mime := "image/" + ext
	if ext == "jpg" {
		mime = "image/jpeg"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="images"; filename="image_%d.%s"`, index, ext))
	header.Set("Content-Type", mime)

	part, err := w.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to write image %s: %w", path, err)
	}
	return nil
}
