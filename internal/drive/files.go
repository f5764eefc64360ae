package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/abrahampo1/savecloud/internal/remote"
)

// Ensure Client implements remote.Client at compile time.
var _ remote.Client = (*Client)(nil)

// folderMIMEType is the provider's folder marker MIME type.
const folderMIMEType = "application/vnd.google-apps.folder"

// listPageSize is the page size for list requests.
const listPageSize = 100

// fileFields is the field projection requested on every file response.
const fileFields = "id,name,mimeType,description,size,createdTime,modifiedTime,trashed"

// fileResource mirrors the provider's file JSON. Unexported — callers use
// remote.File via toFile() normalization.
type fileResource struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	Description  string `json:"description"`
	Size         string `json:"size"`
	CreatedTime  string `json:"createdTime"`
	ModifiedTime string `json:"modifiedTime"`
	Trashed      bool   `json:"trashed"`
}

type listFilesResponse struct {
	Files         []fileResource `json:"files"`
	NextPageToken string         `json:"nextPageToken"`
}

type createFileMetadata struct {
	Name        string   `json:"name"`
	MimeType    string   `json:"mimeType,omitempty"`
	Description string   `json:"description,omitempty"`
	Parents     []string `json:"parents,omitempty"`
}

// toFile normalizes a provider file resource into a remote.File.
// The provider reports size as a decimal string; unparsable values read as 0.
func (f *fileResource) toFile(logger *slog.Logger) remote.File {
	size, err := strconv.ParseInt(f.Size, 10, 64)
	if err != nil && f.Size != "" {
		logger.Warn("unparsable file size", slog.String("id", f.ID), slog.String("size", f.Size))
	}

	out := remote.File{
		ID:          f.ID,
		Name:        f.Name,
		Size:        size,
		Description: f.Description,
		IsFolder:    f.MimeType == folderMIMEType,
	}

	if t, parseErr := time.Parse(time.RFC3339, f.CreatedTime); parseErr == nil {
		out.CreatedAt = t
	}

	if t, parseErr := time.Parse(time.RFC3339, f.ModifiedTime); parseErr == nil {
		out.ModifiedAt = t
	}

	return out
}

// buildQuery translates a remote.ListQuery into the provider's query syntax.
// Trashed entries are always excluded.
func buildQuery(q remote.ListQuery) string {
	terms := []string{"trashed = false"}

	if q.Name != "" {
		terms = append(terms, fmt.Sprintf("name = '%s'", escapeQueryValue(q.Name)))
	}

	if q.NameContains != "" {
		terms = append(terms, fmt.Sprintf("name contains '%s'", escapeQueryValue(q.NameContains)))
	}

	if q.ParentID != "" {
		terms = append(terms, fmt.Sprintf("'%s' in parents", escapeQueryValue(q.ParentID)))
	}

	if q.OnlyFolders {
		terms = append(terms, fmt.Sprintf("mimeType = '%s'", folderMIMEType))
	}

	return strings.Join(terms, " and ")
}

// escapeQueryValue escapes single quotes and backslashes for the provider's
// query language.
func escapeQueryValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}

// ListFiles returns non-trashed files matching the query, newest first.
// Paginates until the provider reports no more pages.
func (c *Client) ListFiles(ctx context.Context, q remote.ListQuery) ([]remote.File, error) {
	var (
		out       []remote.File
		pageToken string
	)

	for {
		params := url.Values{
			"q":        {buildQuery(q)},
			"fields":   {fmt.Sprintf("nextPageToken,files(%s)", fileFields)},
			"orderBy":  {"createdTime desc"},
			"pageSize": {strconv.Itoa(listPageSize)},
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		resp, err := c.do(ctx, http.MethodGet, c.baseURL+"/files?"+params.Encode(), "", nil)
		if err != nil {
			return nil, err
		}

		var page listFilesResponse
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()

		if err != nil {
			return nil, fmt.Errorf("drive: decoding list response: %w", err)
		}

		for i := range page.Files {
			out = append(out, page.Files[i].toFile(c.logger))
		}

		if page.NextPageToken == "" {
			return out, nil
		}

		pageToken = page.NextPageToken
	}
}

// CreateFolder creates a folder at the drive root.
func (c *Client) CreateFolder(ctx context.Context, name string) (*remote.File, error) {
	c.logger.Info("creating remote folder", slog.String("name", name))

	body, err := json.Marshal(createFileMetadata{Name: name, MimeType: folderMIMEType})
	if err != nil {
		return nil, fmt.Errorf("drive: marshaling folder metadata: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost,
		c.baseURL+"/files?fields="+url.QueryEscape(fileFields), "application/json", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return c.decodeFile(resp.Body, "create folder")
}

// CreateFile uploads content as a new file under parentID using a multipart
// request: a JSON metadata part (name, description, parent) followed by the
// content stream. The description carries the backup metadata record.
func (c *Client) CreateFile(
	ctx context.Context, name, parentID, description string, content io.Reader,
) (*remote.File, error) {
	c.logger.Info("uploading file",
		slog.String("name", name),
		slog.String("parent_id", parentID),
	)

	meta := createFileMetadata{Name: name, Description: description}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("drive: marshaling file metadata: %w", err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeMultipartUpload(mw, metaJSON, content))
	}()

	uploadEndpoint := fmt.Sprintf("%s/files?uploadType=multipart&fields=%s",
		c.uploadURL, url.QueryEscape(fileFields))

	contentType := "multipart/related; boundary=" + mw.Boundary()

	resp, err := c.doStream(ctx, http.MethodPost, uploadEndpoint, contentType, pr)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return c.decodeFile(resp.Body, "upload")
}

// writeMultipartUpload writes the metadata and media parts and closes the
// multipart writer. Runs in the upload goroutine; its error surfaces through
// the pipe to the HTTP request.
func writeMultipartUpload(mw *multipart.Writer, metaJSON []byte, content io.Reader) error {
	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")

	part, err := mw.CreatePart(metaHeader)
	if err != nil {
		return fmt.Errorf("drive: creating metadata part: %w", err)
	}

	if _, err := part.Write(metaJSON); err != nil {
		return fmt.Errorf("drive: writing metadata part: %w", err)
	}

	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", "application/octet-stream")

	part, err = mw.CreatePart(mediaHeader)
	if err != nil {
		return fmt.Errorf("drive: creating media part: %w", err)
	}

	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("drive: streaming content: %w", err)
	}

	return mw.Close()
}

// GetFile fetches a file's metadata (including its description) by ID.
func (c *Client) GetFile(ctx context.Context, id string) (*remote.File, error) {
	resp, err := c.do(ctx, http.MethodGet,
		fmt.Sprintf("%s/files/%s?fields=%s", c.baseURL, url.PathEscape(id), url.QueryEscape(fileFields)),
		"", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return c.decodeFile(resp.Body, "get file")
}

// GetFileContent streams the file's content to w.
func (c *Client) GetFileContent(ctx context.Context, id string, w io.Writer) (int64, error) {
	c.logger.Info("downloading file content", slog.String("id", id))

	resp, err := c.do(ctx, http.MethodGet,
		fmt.Sprintf("%s/files/%s?alt=media", c.baseURL, url.PathEscape(id)), "", nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("drive: streaming download: %w", err)
	}

	c.logger.Debug("download complete", slog.String("id", id), slog.Int64("bytes", n))

	return n, nil
}

// DeleteFile removes the file. Provider errors propagate untouched.
func (c *Client) DeleteFile(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete,
		c.baseURL+"/files/"+url.PathEscape(id), "", nil)
	if err != nil {
		return err
	}

	resp.Body.Close()

	return nil
}

func (c *Client) decodeFile(r io.Reader, op string) (*remote.File, error) {
	var res fileResource
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, fmt.Errorf("drive: decoding %s response: %w", op, err)
	}

	f := res.toFile(c.logger)

	return &f, nil
}
