// Package presence joins network scan observations against the user
// registry to decide who is physically in the office, and formats the
// result for the HTTP and chat reporters.
package presence

import (
	"github.com/officewatch/officewatch/internal/netscan"
	"github.com/officewatch/officewatch/internal/registry"
)

// Match returns the users owning at least one observed device. It is a pure
// function over in-memory data:
//
//   - MAC comparison is case-insensitive exact match, no separator
//     normalization.
//   - For each observation the first matching user in userList wins; MAC
//     uniqueness across users is not enforced in the registry, so a
//     duplicate registration silently hides the second owner.
//   - A user appears at most once even when several of their devices were
//     observed.
//   - Result order follows observation order, not registry order.
func Match(observations []netscan.Observation, userList []registry.User) []registry.User {
	var present []registry.User
	seen := make(map[string]bool, len(userList))

	for _, obs := range observations {
		for i := range userList {
			user := &userList[i]
			if !user.OwnsMAC(obs.MAC) {
				continue
			}
			if !seen[user.ID] {
				seen[user.ID] = true
				present = append(present, *user)
			}
			break
		}
	}
	return present
}
