// Package drive lists, inspects and downloads a user's Google Drive files.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pysugar/dataroom/internal/apperr"
	"github.com/pysugar/dataroom/internal/auth/google"
	"github.com/pysugar/dataroom/internal/config"
	"github.com/pysugar/dataroom/internal/util"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const (
	// MetadataTimeout bounds list and metadata calls.
	MetadataTimeout = 30 * time.Second
	// DownloadTimeout bounds content downloads and exports.
	DownloadTimeout = 120 * time.Second

	listFields     = "files(id,name,mimeType,modifiedTime,size,webViewLink,iconLink),nextPageToken"
	metadataFields = "id,name,mimeType,size,webViewLink"
)

// File is a listed Drive file as returned to the frontend.
type File struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	MimeType     string  `json:"mime_type"`
	Size         *string `json:"size"`
	ModifiedTime string  `json:"modified_time"`
	WebViewLink  string  `json:"web_view_link"`
	IconLink     string  `json:"icon_link"`
}

// ListOptions narrows a listing. Empty fields are ignored.
type ListOptions struct {
	PageSize  int64
	PageToken string
	Query     string
	FolderID  string
}

// ListResult is one page of files.
type ListResult struct {
	Files         []File  `json:"files"`
	NextPageToken *string `json:"next_page_token"`
}

// Metadata describes a single file ahead of import.
type Metadata struct {
	ID          string
	Name        string
	MimeType    string
	Size        int64
	WebViewLink string
}

// Client calls the Drive v3 API on behalf of a user.
type Client struct {
	cfg             config.GoogleConfig
	metadataTimeout time.Duration
	downloadTimeout time.Duration
}

// NewClient returns a Drive client. cfg.APIBaseURL overrides the Google endpoint.
func NewClient(cfg config.GoogleConfig) *Client {
	return &Client{cfg: cfg, metadataTimeout: MetadataTimeout, downloadTimeout: DownloadTimeout}
}

func (c *Client) service(ctx context.Context, accessToken string) (*drivev3.Service, error) {
	return drivev3.NewService(ctx, google.APIOptions(ctx, c.cfg, accessToken, "drive/v3/")...)
}

// ListFiles returns non-folder, non-trashed files, most recently modified first.
func (c *Client) ListFiles(ctx context.Context, accessToken string, opts ListOptions) (*ListResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.metadataTimeout)
	defer cancel()

	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeDriveListFailed, "Failed to list Drive files")
	}
	call := svc.Files.List().
		Q(BuildQuery(opts.Query, opts.FolderID)).
		Fields(googleapi.Field(listFields)).
		OrderBy("modifiedTime desc").
		Context(ctx)
	if opts.PageSize > 0 {
		call = call.PageSize(opts.PageSize)
	}
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}

	res, err := call.Do()
	if err != nil {
		return nil, apiError(err, apperr.CodeDriveListFailed, "Failed to list Drive files")
	}

	out := &ListResult{Files: make([]File, 0, len(res.Files))}
	for _, f := range res.Files {
		file := File{
			ID:           f.Id,
			Name:         f.Name,
			MimeType:     f.MimeType,
			ModifiedTime: f.ModifiedTime,
			WebViewLink:  f.WebViewLink,
			IconLink:     f.IconLink,
		}
		// Google-native files have no size.
		if f.Size > 0 {
			size := strconv.FormatInt(f.Size, 10)
			file.Size = &size
		}
		out.Files = append(out.Files, file)
	}
	if res.NextPageToken != "" {
		out.NextPageToken = &res.NextPageToken
	}
	return out, nil
}

// GetMetadata fetches the fields needed to import a file.
func (c *Client) GetMetadata(ctx context.Context, accessToken, fileID string) (*Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, c.metadataTimeout)
	defer cancel()

	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeDriveMetadataFailed, "Failed to get file metadata")
	}
	f, err := svc.Files.Get(fileID).Fields(googleapi.Field(metadataFields)).Context(ctx).Do()
	if err != nil {
		return nil, apiError(err, apperr.CodeDriveMetadataFailed, "Failed to get file metadata")
	}
	mimeType := f.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return &Metadata{ID: f.Id, Name: f.Name, MimeType: mimeType, Size: f.Size, WebViewLink: f.WebViewLink}, nil
}

// Download returns a file's content. Google-native documents are exported
// in the format given by ExportFormat; everything else is fetched as-is.
func (c *Client) Download(ctx context.Context, accessToken, fileID, mimeType string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.downloadTimeout)
	defer cancel()

	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeDriveDownloadFailed, "Failed to download file")
	}

	var call interface {
		Download(opts ...googleapi.CallOption) (*http.Response, error)
	}
	if format, ok := ExportFormat(mimeType); ok {
		call = svc.Files.Export(fileID, format).Context(ctx)
	} else {
		call = svc.Files.Get(fileID).Context(ctx)
	}

	resp, err := call.Download()
	if err != nil {
		return nil, apiError(err, apperr.CodeDriveDownloadFailed, "Failed to download file")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeDriveDownloadFailed, "Failed to download file: "+err.Error())
	}
	return data, nil
}

// BuildQuery assembles the Drive search expression for a listing.
func BuildQuery(nameContains, folderID string) string {
	parts := []string{
		fmt.Sprintf("mimeType != '%s'", FolderMimeType),
		"trashed = false",
	}
	if folderID != "" {
		parts = append(parts, fmt.Sprintf("'%s' in parents", escapeQuery(folderID)))
	}
	if nameContains != "" {
		parts = append(parts, fmt.Sprintf("name contains '%s'", escapeQuery(nameContains)))
	}
	return strings.Join(parts, " and ")
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

func apiError(err error, code, message string) *apperr.Error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		detail := gErr.Body
		if detail == "" {
			detail = gErr.Message
		}
		return apperr.Wrap(err, code, message+": "+util.TruncateMessage(detail))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(err, code, message+": request timed out")
	}
	return apperr.Wrap(err, code, message+": "+util.TruncateMessage(err.Error()))
}
