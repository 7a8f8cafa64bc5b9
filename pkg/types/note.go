// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// NoteInfo is one entry of a folder's note listing.
type NoteInfo struct {
	DocGUID  string `json:"docGuid"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Abstract string `json:"abstractText,omitempty"`
	Type     string `json:"type,omitempty"`

	// Created and DataModified are millisecond epoch timestamps as the
	// service reports them.
	Created      int64 `json:"created,omitempty"`
	DataModified int64 `json:"dataModified,omitempty"`

	// Attachments present on the note, when the listing includes them.
	AttachmentCount int `json:"attachmentCount,omitempty"`
}

// ModifiedTime returns DataModified as a time.Time in UTC.
func (n NoteInfo) ModifiedTime() time.Time {
	return time.UnixMilli(n.DataModified).UTC()
}

// AttachmentInfo describes one note attachment.
type AttachmentInfo struct {
	AttGUID  string `json:"attGuid"`
	DocGUID  string `json:"docGuid"`
	Name     string `json:"name"`
	Size     int64  `json:"size,omitempty"`
	Modified int64  `json:"dataModified,omitempty"`
}
