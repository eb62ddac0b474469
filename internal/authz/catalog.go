// Package authz decides whether an authenticated principal may perform an action.
//
// Permissions reach a principal from two disjoint sources: claims attached to
// the roles it holds (user:*) and the permission catalog entry for its
// subscription tier (campaign:*, template:*, content:*, result:*). Both are
// merged into one set when the access token is built.
package authz

import (
	"sort"

	"github.com/phishdrill/phishdrill/internal/model"
)

var freePermissions = []string{
	model.PermCampaignRead,
	model.PermCampaignCreate,
	model.PermContentRead,
	model.PermTemplateRead,
}

var tierPermissions = map[model.SubscriptionTier][]string{
	model.TierFree: freePermissions,
	model.TierPro: append(append([]string{}, freePermissions...),
		model.PermCampaignSMS,
		model.PermTemplateCreate,
		model.PermResultExport,
	),
}

// PermissionsFor returns the permissions granted by a subscription tier.
// Unknown tiers get an empty set. The returned slice is a sorted copy.
func PermissionsFor(tier model.SubscriptionTier) []string {
	perms, ok := tierPermissions[tier]
	if !ok {
		return []string{}
	}
	return MergePermissions(perms)
}

// MergePermissions returns the sorted union of the given sets with blanks
// and duplicates removed.
func MergePermissions(sets ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, set := range sets {
		for _, p := range set {
			if p == "" {
				continue
			}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
