package vpcstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mulgadc/fabricd/fabric/apierrors"
	"github.com/mulgadc/fabricd/fabric/authz"
	"github.com/mulgadc/fabricd/fabric/model"
	"github.com/mulgadc/fabricd/fabric/store"
)

// FirewallRuleInput is the caller-supplied shape of one rule in a bulk
// replace (spec.md §4.4, component C4).
type FirewallRuleInput struct {
	Name      string
	Status    model.FirewallRuleStatus
	Direction model.FirewallDirection
	Targets   []string
	Filters   model.FirewallFilters
	Action    model.FirewallAction
	Priority  int64
}

// listLiveFirewallRulesByVPC returns a VPC's live rules ordered by name, so
// that list_firewall_rules(vpc) = sort(R, by name) holds (spec.md §4.4, P5).
func (s *Store) listLiveFirewallRulesByVPC(vpcID string) ([]model.FirewallRule, error) {
	all, err := store.ListLive[model.FirewallRule](s.firewall)
	if err != nil {
		return nil, err
	}
	out := make([]model.FirewallRule, 0, len(all))
	for _, r := range all {
		if r.VPCID == vpcID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ReplaceFirewallRules implements firewall_rules_update (C4): the entire
// rule set of a VPC is replaced atomically, the same whole-collection
// semantics hive/handlers/ec2/vpc uses for security-group rule sets. The
// VPC's firewall_gen is the serialization point: it is bumped with the
// revision observed before the old rules were cleared, so a concurrent
// replace racing against this one is caught by CAS and retried rather than
// interleaving.
func (s *Store) ReplaceFirewallRules(ctx context.Context, actor, vpcID string, rules []FirewallRuleInput) ([]model.FirewallRule, error) {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionModify, authz.Resource{Type: "vpc", ID: vpcID}); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if seen[r.Name] {
			return nil, apierrors.InvalidRequest("duplicate firewall rule name %q in replacement set", r.Name)
		}
		seen[r.Name] = true
	}

	// Step 1 of the replacement algorithm: sort new_rules by name ascending
	// before insert, so the inserted set's iteration order already matches
	// list_firewall_rules' contract (spec.md §4.4).
	rules = append([]FirewallRuleInput(nil), rules...)
	sort.Slice(rules, func(i, j int) bool { return rules[i].Name < rules[j].Name })

	return store.WithRetry(ctx, store.DefaultRetry, func() ([]model.FirewallRule, error) {
		vpc, vpcRev, err := store.Get[model.VPC](s.vpcs, vpcID)
		if err != nil || !vpc.Live() {
			return nil, apierrors.NotFound("vpc", vpcID)
		}

		existing, err := s.listLiveFirewallRulesByVPC(vpcID)
		if err != nil {
			return nil, err
		}
		// A name carried over from the old set keeps its index entry, which
		// is repointed at the new rule once the CAS has succeeded.
		existingNames := make(map[string]bool, len(existing))
		for _, old := range existing {
			existingNames[old.Name] = true
		}

		now := time.Now()
		created := make([]model.FirewallRule, 0, len(rules))
		var claimedNames []string
		var createdIDs []string

		rollback := func() {
			for _, id := range createdIDs {
				_ = store.Delete(s.firewall, id)
			}
			for _, key := range claimedNames {
				_ = store.Delete(s.firewallNames, key)
			}
		}

		for _, in := range rules {
			id := uuid.NewString()
			nameIdxKey := nameKey(vpcID, in.Name)
			if !existingNames[in.Name] {
				if _, err := store.TryCreateUnique(s.firewallNames, nameIdxKey, []byte(id)); err != nil {
					rollback()
					return nil, apierrors.AlreadyExists("firewall rule", in.Name)
				}
				claimedNames = append(claimedNames, nameIdxKey)
			}

			rule := &model.FirewallRule{
				Timestamps: model.Timestamps{TimeCreated: now, TimeModified: now},
				ID:         id,
				VPCID:      vpcID,
				Name:       in.Name,
				Status:     in.Status,
				Direction:  in.Direction,
				Targets:    in.Targets,
				Filters:    in.Filters,
				Action:     in.Action,
				Priority:   in.Priority,
			}
			if _, err := store.Put(s.firewall, id, rule); err != nil {
				rollback()
				return nil, apierrors.Internal(err)
			}
			createdIDs = append(createdIDs, id)
			created = append(created, *rule)
		}

		// The gen-bump CAS is the serialization point (and the one step that
		// can still fail, e.g. a concurrent delete_vpc winning the race on
		// this row). Old rules are only deleted once it succeeds, so a
		// failed CAS leaves the prior rule set fully intact (P5) instead of
		// being destroyed ahead of a commit that might not happen.
		vpc.FirewallGen++
		vpc.TimeModified = now
		if _, err := store.CASUpdate(s.vpcs, vpcID, vpcRev, vpc); err != nil {
			rollback()
			return nil, apierrors.Conflict("vpc", vpcID)
		}

		for _, old := range existing {
			_ = store.Delete(s.firewall, old.ID)
			if !seen[old.Name] {
				_ = store.Delete(s.firewallNames, nameKey(vpcID, old.Name))
			}
		}
		for _, r := range created {
			if existingNames[r.Name] {
				_, _ = s.firewallNames.KV.Put(nameKey(vpcID, r.Name), []byte(r.ID))
			}
		}

		return created, nil
	})
}

// ListFirewallRules lists every live firewall rule of a VPC, which is also
// the authoritative set the Fabric Resolver's downstream push consumes
// (spec.md §6).
func (s *Store) ListFirewallRules(ctx context.Context, actor, vpcID string) ([]model.FirewallRule, error) {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionListChildren, authz.Resource{Type: "vpc", ID: vpcID}); err != nil {
		return nil, err
	}
	return s.listLiveFirewallRulesByVPC(vpcID)
}

// GetFirewallRule fetches a single live rule by id.
func (s *Store) GetFirewallRule(ctx context.Context, actor, id string) (*model.FirewallRule, error) {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionRead, authz.Resource{Type: "firewall_rule", ID: id}); err != nil {
		return nil, err
	}
	r, _, err := store.Get[model.FirewallRule](s.firewall, id)
	if err != nil || !r.Live() {
		return nil, apierrors.NotFound("firewall_rule", id)
	}
	return r, nil
}
