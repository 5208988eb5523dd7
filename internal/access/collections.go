package access

// Collection names the tenant-managed collections the access layer guards.
type Collection string

const (
	CollectionPages      Collection = "pages"
	CollectionPosts      Collection = "posts"
	CollectionMedia      Collection = "media"
	CollectionCategories Collection = "categories"
	CollectionHeader     Collection = "header"
	CollectionFooter     Collection = "footer"
	CollectionSections   Collection = "sections"
)

// ManagedCollections is the closed set a tenant's allowed_collections and
// allow_public_read lists may reference.
var ManagedCollections = []Collection{
	CollectionPages,
	CollectionPosts,
	CollectionMedia,
	CollectionCategories,
	CollectionHeader,
	CollectionFooter,
	CollectionSections,
}

// publishedCollections have a draft/published lifecycle; anonymous reads on
// them are narrowed to published rows.
var publishedCollections = map[Collection]bool{
	CollectionPages: true,
	CollectionPosts: true,
}

func IsManaged(col Collection) bool {
	for _, c := range ManagedCollections {
		if c == col {
			return true
		}
	}
	return false
}
