package search

import (
	"time"

	"github.com/zfogg/unify/internal/models"
)

// Index names
const (
	IndexUsers  = "users"
	IndexGroups = "groups"
	IndexPages  = "pages"
)

// UserDocument is what the users index stores
type UserDocument struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	FullName   string    `json:"full_name"`
	Bio        string    `json:"bio"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

type GroupDocument struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsPrivate   bool      `json:"is_private"`
	CreatedAt   time.Time `json:"created_at"`
}

type PageDocument struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	IsVerified  bool      `json:"is_verified"`
	CreatedAt   time.Time `json:"created_at"`
}

func UserToDocument(u *models.User) UserDocument {
	return UserDocument{
		ID:         u.ID,
		Username:   u.Username,
		FullName:   u.FullName,
		Bio:        u.Bio,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}

func GroupToDocument(g *models.Group) GroupDocument {
	return GroupDocument{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		IsPrivate:   g.IsPrivate,
		CreatedAt:   g.CreatedAt,
	}
}

func PageToDocument(p *models.Page) PageDocument {
	return PageDocument{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		IsVerified:  p.IsVerified,
		CreatedAt:   p.CreatedAt,
	}
}

type object = map[string]interface{}

var indexMappings = map[string]object{
	IndexUsers: {
		"properties": object{
			"id":          object{"type": "keyword"},
			"username":    object{"type": "text", "analyzer": "standard", "fields": object{"keyword": object{"type": "keyword"}}},
			"full_name":   object{"type": "text", "analyzer": "standard"},
			"bio":         object{"type": "text", "analyzer": "standard"},
			"is_verified": object{"type": "boolean"},
			"created_at":  object{"type": "date"},
		},
	},
	IndexGroups: {
		"properties": object{
			"id":          object{"type": "keyword"},
			"name":        object{"type": "text", "analyzer": "standard"},
			"description": object{"type": "text", "analyzer": "standard"},
			"is_private":  object{"type": "boolean"},
			"created_at":  object{"type": "date"},
		},
	},
	IndexPages: {
		"properties": object{
			"id":          object{"type": "keyword"},
			"name":        object{"type": "text", "analyzer": "standard"},
			"description": object{"type": "text", "analyzer": "standard"},
			"category":    object{"type": "keyword"},
			"is_verified": object{"type": "boolean"},
			"created_at":  object{"type": "date"},
		},
	},
}

// searchFields lists the boosted fields each index is matched on
var searchFields = map[string][]string{
	IndexUsers:  {"username^2", "full_name^1.5", "bio^0.5"},
	IndexGroups: {"name^2", "description"},
	IndexPages:  {"name^2", "description", "category"},
}

// buildQuery renders the fuzzy multi_match body for index. Private groups
// are filtered out.
func buildQuery(index, q string, size int) object {
	boolQuery := object{
		"must": object{
			"multi_match": object{
				"query":         q,
				"fields":        searchFields[index],
				"fuzziness":     "AUTO",
				"prefix_length": 1,
				"type":          "best_fields",
			},
		},
	}
	if index == IndexGroups {
		boolQuery["filter"] = []object{{"term": object{"is_private": false}}}
	}
	return object{
		"query":   object{"bool": boolQuery},
		"size":    size,
		"_source": false,
	}
}
