package model

import (
	"encoding/base64"
	"encoding/json"
)

// FileUpload is a file carried inside a JSON body. The backend expects the
// contents base64-encoded, not multipart.
type FileUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type encodedFile struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType,omitempty"`
	FileData    string `json:"filedata"`
}

func (f FileUpload) encode() encodedFile {
	return encodedFile{
		Filename:    f.Filename,
		ContentType: f.ContentType,
		FileData:    base64.StdEncoding.EncodeToString(f.Data),
	}
}

func (f FileUpload) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.encode())
}

func (f *FileUpload) UnmarshalJSON(data []byte) error {
	var ef encodedFile
	if err := json.Unmarshal(data, &ef); err != nil {
		return err
	}
	raw, err := base64.StdEncoding.DecodeString(ef.FileData)
	if err != nil {
		return err
	}
	*f = FileUpload{Filename: ef.Filename, ContentType: ef.ContentType, Data: raw}
	return nil
}

// UploadRequest is the body of POST /upload-events. Files is optional;
// announcements are usually posted without one.
type UploadRequest struct {
	Type         ItemType     `json:"type"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Date         string       `json:"date,omitempty"`
	RequiresRSVP bool         `json:"requiresRsvp"`
	Files        []FileUpload `json:"files,omitempty"`
}

// PosterUpload is the legacy POST /upload-poster event shape: a single
// optional file flattened into the body.
type PosterUpload struct {
	Type         ItemType
	Title        string
	Description  string
	Date         string
	RequiresRSVP bool
	File         *FileUpload
}

func (p PosterUpload) MarshalJSON() ([]byte, error) {
	body := struct {
		Filename     string   `json:"filename"`
		FileData     *string  `json:"filedata"`
		Title        string   `json:"title"`
		Description  string   `json:"description"`
		Date         string   `json:"date"`
		Type         ItemType `json:"type"`
		RequiresRSVP bool     `json:"requiresRsvp"`
	}{
		Title:        p.Title,
		Description:  p.Description,
		Date:         p.Date,
		Type:         p.Type,
		RequiresRSVP: p.RequiresRSVP,
	}
	if p.File != nil {
		ef := p.File.encode()
		body.Filename = ef.Filename
		body.FileData = &ef.FileData
	}
	return json.Marshal(body)
}
