// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DriveState tracks how far a Drive upload went.
type DriveState string

const (
	// DriveUploaded the file exists but is still private.
	DriveUploaded DriveState = "uploaded"
	// DriveShared the file is readable by anyone with the link.
	DriveShared DriveState = "shared"
	// DriveFailedAfterUpload sharing failed, the private file is left behind.
	DriveFailedAfterUpload DriveState = "failed-after-upload"
)

// DefaultDriveRole is granted when no role is given.
const DefaultDriveRole = "reader"

var driveRoles = map[string]bool{
	"reader":    true,
	"commenter": true,
	"writer":    true,
}

const (
	driveFailure = "Google Drive deployment failed"

	// driveChunkSize is the resumable upload chunk, a multiple of 256KiB.
	// Media smaller than one chunk goes out as a single multipart request.
	driveChunkSize = 8 << 20
)

// DriveAPI is the slice of the Drive API the backend needs.
type DriveAPI interface {
	// Upload creates a file out of media and returns its id.
	Upload(ctx context.Context, name, parentID string, media io.Reader) (string, error)

	// Share grants role to anyone with the link.
	Share(ctx context.Context, fileID, role string) error

	// Link returns the view and download links of a file.
	Link(ctx context.Context, fileID string) (view, download string, err error)
}

// DriveOptions configures a DriveBackend.
type DriveOptions struct {
	// FolderID is the default parent folder.
	FolderID string

	// Role is the default role, DefaultDriveRole when empty.
	Role string
}

// DriveBackend uploads to Google Drive in two phases: upload, then share.
type DriveBackend struct {
	connect func(ctx context.Context) (DriveAPI, error)
	opts    DriveOptions
}

// NewDriveBackend creates the OAuth storage backend. The Drive client is
// built on first use out of the credentials.
func NewDriveBackend(creds CredentialProvider, options DriveOptions) *DriveBackend {
	return &DriveBackend{
		opts: options,
		connect: func(ctx context.Context) (DriveAPI, error) {
			client, err := creds.Client(ctx)
			if err != nil {
				return nil, err
			}

			return NewDriveService(ctx, client)
		},
	}
}

// NewDriveBackendWithAPI creates a backend over an already built client.
func NewDriveBackendWithAPI(api DriveAPI, options DriveOptions) *DriveBackend {
	return &DriveBackend{
		opts: options,
		connect: func(context.Context) (DriveAPI, error) {
			return api, nil
		},
	}
}

// Publish implements Publisher. When sharing fails after a successful
// upload, the result still carries the file id so the private copy can be
// found.
func (b *DriveBackend) Publish(ctx context.Context, path string, opts Options) Result {
	if err := checkLocalFile(path); err != nil {
		return Failure(err)
	}

	role := opts.Role
	if role == "" {
		role = b.opts.Role
	}

	if role == "" {
		role = DefaultDriveRole
	}

	if !driveRoles[role] {
		return Failure(&Error{
			Kind:    KindInvalidOptions,
			Message: fmt.Sprintf("invalid Drive role %q (want reader, commenter or writer)", role),
		})
	}

	folder := opts.FolderID
	if folder == "" {
		folder = b.opts.FolderID
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(path)
	}

	api, err := b.connect(ctx)
	if err != nil {
		var perr *Error
		if errors.As(err, &perr) {
			return Failure(err)
		}

		return Failure(&Error{Kind: KindAuth, Message: "Google Drive authentication failed", Err: err})
	}

	f, err := os.Open(path)
	if err != nil {
		return Failure(&Error{Kind: KindLocalFileMissing, Message: "opening " + path, Err: err})
	}
	defer f.Close()

	id, err := api.Upload(ctx, name, folder, f)
	if err != nil {
		return Failure(classifyDriveError(driveFailure+": upload", err))
	}

	ret := Result{}
	ret.set("file_id", id)
	ret.set("state", string(DriveUploaded))

	if err := api.Share(ctx, id, role); err != nil {
		ret.set("state", string(DriveFailedAfterUpload))

		return ret.Fail(classifyDriveError(
			fmt.Sprintf("%s: sharing uploaded file %s", driveFailure, id), err))
	}

	ret.set("state", string(DriveShared))
	ret.set("role", role)

	view, download, err := api.Link(ctx, id)
	if err != nil {
		return ret.Fail(classifyDriveError(
			fmt.Sprintf("%s: fetching link of file %s", driveFailure, id), err))
	}

	ret.Success = true
	ret.URL = view
	ret.set("download_url", download)

	return ret
}

func classifyDriveError(prefix string, err error) *Error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		body := gerr.Body
		if body == "" {
			body = gerr.Message
		}

		kind := KindRejected
		if gerr.Code == http.StatusUnauthorized {
			kind = KindAuth
		}

		return &Error{
			Kind:    kind,
			Message: fmt.Sprintf("%s: HTTP %d", prefix, gerr.Code),
			Status:  gerr.Code,
			Body:    body,
		}
	}

	return transport(prefix, err)
}

// driveService implements DriveAPI with the generated Drive v3 client.
type driveService struct {
	srv *drive.Service
}

// NewDriveService builds a DriveAPI on top of an authorized client.
func NewDriveService(ctx context.Context, client *http.Client) (DriveAPI, error) {
	srv, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("creating Drive client: %w", err)
	}

	return &driveService{srv: srv}, nil
}

func (s *driveService) Upload(ctx context.Context, name, parentID string, media io.Reader) (string, error) {
	meta := &drive.File{
		Name:     name,
		MimeType: "text/html",
	}

	if parentID != "" {
		meta.Parents = []string{parentID}
	}

	created, err := s.srv.Files.Create(meta).
		Media(media,
			googleapi.ContentType("text/html"),
			googleapi.ChunkSize(driveChunkSize),
		).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}

	return created.Id, nil
}

func (s *driveService) Share(ctx context.Context, fileID, role string) error {
	_, err := s.srv.Permissions.Create(fileID, &drive.Permission{
		Type: "anyone",
		Role: role,
	}).Fields("id").Context(ctx).Do()

	return err
}

func (s *driveService) Link(ctx context.Context, fileID string) (string, string, error) {
	f, err := s.srv.Files.Get(fileID).Fields("webViewLink", "webContentLink").Context(ctx).Do()
	if err != nil {
		return "", "", err
	}

	return f.WebViewLink, f.WebContentLink, nil
}
