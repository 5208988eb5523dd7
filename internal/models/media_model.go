package models

import "gorm.io/datatypes"

type MediaFile struct {
	TenantDocument
	FileName string         `gorm:"size:255" json:"file_name"`
	URL      string         `gorm:"size:500" json:"url"`
	Type     string         `gorm:"size:100;index" json:"type"`
	Size     int64          `json:"size"`
	Width    *int           `json:"width,omitempty"`
	Height   *int           `json:"height,omitempty"`
	Tags     datatypes.JSON `json:"tags,omitempty"`
	Alt      string         `gorm:"size:255" json:"alt"`
	Caption  string         `gorm:"type:text" json:"caption"`
}
