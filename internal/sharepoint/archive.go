package sharepoint

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/agentstation/fiscal/internal/transport"
	"github.com/agentstation/fiscal/pkg/errors"
	"github.com/agentstation/fiscal/pkg/logging"
)

// CSVContentType is the content type of archived exports.
const CSVContentType = "text/csv"

// DriveItem is a file or folder in a document library.
type DriveItem struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	Created time.Time `json:"createdDateTime"`
	WebURL  string    `json:"webUrl"`
	File    *struct {
		MimeType string `json:"mimeType"`
	} `json:"file,omitempty"`
	Folder *struct {
		ChildCount int `json:"childCount"`
	} `json:"folder,omitempty"`
}

// IsFolder reports whether the item is a folder.
func (d DriveItem) IsFolder() bool {
	return d.Folder != nil
}

type drivePage struct {
	Value    []DriveItem `json:"value"`
	NextLink string      `json:"@odata.nextLink"`
}

// ArchiveFolder is a document library folder whose named subfolders receive copies of
// workflow inputs.
type ArchiveFolder struct {
	c        *Client
	root     string
	folderID string

	mu         sync.Mutex
	subfolders map[string]string
}

// ArchiveFolder opens the archive folder folderID of drive driveID. An empty driveID
// selects the site's default document library.
func (c *Client) ArchiveFolder(driveID, folderID string) (*ArchiveFolder, error) {
	if folderID == "" {
		return nil, errors.NewConfigError(System, "archive_folder_id is required", nil)
	}
	root := c.sitePath() + "/drive"
	if driveID != "" {
		root = "/drives/" + driveID
	}
	return &ArchiveFolder{
		c:          c,
		root:       root,
		folderID:   folderID,
		subfolders: make(map[string]string),
	}, nil
}

func (a *ArchiveFolder) itemPath(id string) string {
	return a.c.baseURL + a.root + "/items/" + id
}

// Children lists the items directly under a folder id, following paging links.
func (a *ArchiveFolder) Children(ctx context.Context, folderID string) ([]DriveItem, error) {
	var out []DriveItem
	next := a.itemPath(folderID) + "/children"
	for next != "" {
		resp, err := a.c.http.Get(ctx, next)
		if err != nil {
			return nil, err
		}
		var page drivePage
		if err := transport.DecodeResponse(resp, System, &page); err != nil {
			return nil, errors.WrapResource("read", "folder", folderID, err)
		}
		out = append(out, page.Value...)
		next = page.NextLink
	}
	return out, nil
}

// Subfolder returns the id of a named subfolder of the archive folder.
func (a *ArchiveFolder) Subfolder(ctx context.Context, name string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id, ok := a.subfolders[name]; ok {
		return id, nil
	}

	items, err := a.Children(ctx, a.folderID)
	if err != nil {
		return "", err
	}
	for _, item := range items {
		if item.IsFolder() && item.Name == name {
			a.subfolders[name] = item.ID
			return item.ID, nil
		}
	}
	return "", errors.NewNotFoundError("archive folder", name)
}

// Upload writes content as file name in the named subfolder, replacing any file of
// the same name.
func (a *ArchiveFolder) Upload(ctx context.Context, folder, name string, content []byte, contentType string) (*DriveItem, error) {
	parent, err := a.Subfolder(ctx, folder)
	if err != nil {
		return nil, err
	}

	target := a.itemPath(parent) + ":/" + url.PathEscape(name) + ":/content"
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(content))
	if err != nil {
		return nil, errors.WrapResource("create", "request", "PUT "+target, err)
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := a.c.http.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	var item DriveItem
	if err := transport.DecodeResponse(resp, System, &item); err != nil {
		return nil, errors.WrapResource("upload", "file", folder+"/"+name, err)
	}

	logging.FromContext(ctx).Info().
		Str("folder", folder).
		Str("file", name).
		Int64("bytes", item.Size).
		Msg("Archived file")
	return &item, nil
}

// Archive uploads a CSV export into the named subfolder.
func (a *ArchiveFolder) Archive(ctx context.Context, folder, name string, content []byte) error {
	_, err := a.Upload(ctx, folder, name, content, CSVContentType)
	return err
}

// LastUpload returns the most recently created file in the named subfolder.
func (a *ArchiveFolder) LastUpload(ctx context.Context, folder string) (*DriveItem, error) {
	parent, err := a.Subfolder(ctx, folder)
	if err != nil {
		return nil, err
	}
	items, err := a.Children(ctx, parent)
	if err != nil {
		return nil, err
	}

	var last *DriveItem
	for i := range items {
		item := &items[i]
		if item.IsFolder() {
			continue
		}
		if last == nil || item.Created.After(last.Created) {
			last = item
		}
	}
	if last == nil {
		return nil, errors.NewNotFoundError("archived file", folder)
	}
	return last, nil
}
