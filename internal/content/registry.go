package content

import (
	"github.com/crestcms/crest/internal/access"
	"github.com/crestcms/crest/internal/models"
)

// document is satisfied by every model embedding models.TenantDocument.
type document interface {
	Doc() *models.TenantDocument
}

type entry struct {
	model func() document
	list  func() interface{}
}

var registry = map[access.Collection]entry{
	access.CollectionPages: {
		model: func() document { return &models.Page{} },
		list:  func() interface{} { return &[]models.Page{} },
	},
	access.CollectionPosts: {
		model: func() document { return &models.Post{} },
		list:  func() interface{} { return &[]models.Post{} },
	},
	access.CollectionMedia: {
		model: func() document { return &models.MediaFile{} },
		list:  func() interface{} { return &[]models.MediaFile{} },
	},
	access.CollectionCategories: {
		model: func() document { return &models.Category{} },
		list:  func() interface{} { return &[]models.Category{} },
	},
	access.CollectionHeader: {
		model: func() document { return &models.Header{} },
		list:  func() interface{} { return &[]models.Header{} },
	},
	access.CollectionFooter: {
		model: func() document { return &models.Footer{} },
		list:  func() interface{} { return &[]models.Footer{} },
	},
	access.CollectionSections: {
		model: func() document { return &models.Section{} },
		list:  func() interface{} { return &[]models.Section{} },
	},
}

func lookup(name string) (access.Collection, entry, bool) {
	col := access.Collection(name)
	e, ok := registry[col]
	return col, e, ok
}
