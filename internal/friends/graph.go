// Package friends owns the friendship graph: requests, responses, blocking
// and friends-of-friends suggestions.
package friends

import (
	"sort"

	"github.com/zfogg/unify/internal/models"
	"github.com/zfogg/unify/internal/util"
)

// Edge is one friendship row reduced to what the graph needs
type Edge struct {
	User1ID string
	User2ID string
	Status  string
}

// Suggestion is a candidate with the number of mutual friends it shares with
// the user
type Suggestion struct {
	UserID        string `json:"userId"`
	MutualFriends int    `json:"mutualFriends"`
}

func edgeFrom(f models.Friendship) Edge {
	return Edge{User1ID: f.User1ID, User2ID: f.User2ID, Status: f.Status}
}

// Suggest ranks friends-of-friends of userID by mutual friend count.
//
// Accepted edges touching userID define its friends; any other edge touching
// userID (pending, declined, blocked) excludes the other endpoint. Every
// accepted edge not touching userID that has a friend on one end counts one
// mutual friend for the endpoint on the other end. Results are ordered by
// count descending, then user id ascending.
func Suggest(userID string, edges []Edge) []Suggestion {
	friends := make(map[string]struct{})
	excluded := make(map[string]struct{})
	for _, e := range edges {
		if e.User1ID != userID && e.User2ID != userID {
			continue
		}
		other := e.User1ID
		if other == userID {
			other = e.User2ID
		}
		if e.Status == models.FriendshipAccepted {
			friends[other] = struct{}{}
		} else {
			excluded[other] = struct{}{}
		}
	}

	eligible := func(id string) bool {
		if id == userID {
			return false
		}
		if _, ok := friends[id]; ok {
			return false
		}
		_, ok := excluded[id]
		return !ok
	}

	counts := make(map[string]int)
	for _, e := range edges {
		if e.Status != models.FriendshipAccepted || e.User1ID == userID || e.User2ID == userID {
			continue
		}
		if _, ok := friends[e.User1ID]; ok && eligible(e.User2ID) {
			counts[e.User2ID]++
		}
		if _, ok := friends[e.User2ID]; ok && eligible(e.User1ID) {
			counts[e.User1ID]++
		}
	}

	out := make([]Suggestion, 0, len(counts))
	for id, n := range counts {
		out = append(out, Suggestion{UserID: id, MutualFriends: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MutualFriends != out[j].MutualFriends {
			return out[i].MutualFriends > out[j].MutualFriends
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// Paginate returns the window [offset, offset+limit) of items. limit is
// defaulted and capped like every list endpoint; negative offsets start at 0.
func Paginate[T any](items []T, limit, offset int) []T {
	limit = util.ClampLimit(limit)
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
