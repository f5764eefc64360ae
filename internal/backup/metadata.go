// Package backup implements the cloud save backup/restore engine: archive
// packaging, the remote folder resolver, the upload/restore transfer
// pipeline, and the backup catalog.
package backup

import (
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// DefaultFolderName is the well-known remote folder holding all backups.
const DefaultFolderName = "savecloud-backups"

// Metadata is the provenance record embedded in each remote artifact's
// description. Written at upload time, immutable afterward except for the
// user-assigned label.
type Metadata struct {
	Shop                string `json:"shop"`
	ObjectID            string `json:"objectId"`
	Hostname            string `json:"hostname"`
	HomeDir             string `json:"homeDir,omitempty"`
	Platform            string `json:"platform"`
	WinePrefixPath      string `json:"winePrefixPath,omitempty"`
	DownloadOptionTitle string `json:"downloadOptionTitle,omitempty"`
	Label               string `json:"label,omitempty"`
}

// Encode returns the JSON form carried in the remote file description.
func (m Metadata) Encode() string {
	data, err := json.Marshal(m)
	if err != nil {
		// Metadata is a flat string struct; Marshal cannot fail on it.
		return "{}"
	}

	return string(data)
}

// ParseMetadata decodes a description into Metadata. Parse failures degrade
// to the zero value rather than raising — restores proceed with best-effort
// path mapping and listings show defaulted fields.
func ParseMetadata(description string) Metadata {
	var m Metadata
	if err := json.Unmarshal([]byte(description), &m); err != nil {
		return Metadata{}
	}

	return m
}

// gameFingerprint is the shop-objectID token embedded in artifact names so
// backups are filterable per game. NFC-normalized for cross-platform
// filename consistency.
func gameFingerprint(shop, objectID string) string {
	return norm.NFC.String(fmt.Sprintf("%s-%s", shop, objectID))
}

// artifactName builds the remote file name for a new backup.
func artifactName(shop, objectID, stamp string) string {
	return norm.NFC.String(fmt.Sprintf("%s-%s.tar.gz", gameFingerprint(shop, objectID), stamp))
}

// Completion event names emitted toward the UI, scoped per (objectID, shop).
func uploadCompleteEvent(objectID, shop string) string {
	return fmt.Sprintf("upload-complete:%s:%s", objectID, shop)
}

func downloadCompleteEvent(objectID, shop string) string {
	return fmt.Sprintf("download-complete:%s:%s", objectID, shop)
}
