package authz

import (
	"fmt"
	"slices"
	"strings"

	"github.com/66gu1/thesisportal/internal/infrastructure/apperr"
	"github.com/samber/lo"
)

type Metrics interface {
	GuardDecided(state string)
}

// Resolver answers page access questions for a role set. It is immutable once built,
// does no I/O and is safe for concurrent use.
type Resolver struct {
	pages       map[PageID]PageRule
	roles       []Role
	menu        []MenuItem
	defaultPage PageID
	loginPath   string
	metrics     Metrics
}

func NewResolver(policy Policy, m Metrics) (*Resolver, error) {
	if m == nil {
		panic("authz.NewResolver: metrics is nil")
	}

	r := &Resolver{
		pages:       make(map[PageID]PageRule, len(policy.Pages)),
		roles:       slices.Clone(policy.Roles),
		menu:        make([]MenuItem, 0, len(policy.Menu)),
		defaultPage: normalize(policy.DefaultPage),
		loginPath:   policy.LoginPath,
		metrics:     m,
	}

	known := make(map[RoleID]struct{}, len(policy.Roles))
	for _, role := range policy.Roles {
		if _, ok := known[role.ID]; ok {
			return nil, fmt.Errorf("authz.NewResolver: %w",
				invalidPolicy(FieldRoles, apperr.RuleDuplicate, fmt.Sprintf("role id %d listed twice", role.ID)))
		}
		known[role.ID] = struct{}{}
	}

	for page, rule := range policy.Pages {
		for _, id := range rule.Roles {
			if _, ok := known[id]; !ok {
				return nil, fmt.Errorf("authz.NewResolver: %w",
					invalidPolicy(FieldPages, apperr.RuleUnknown, fmt.Sprintf("page %q references unknown role %d", page, id)))
			}
		}
		id := normalize(page)
		if _, ok := r.pages[id]; ok {
			return nil, fmt.Errorf("authz.NewResolver: %w",
				invalidPolicy(FieldPages, apperr.RuleDuplicate, fmt.Sprintf("page %q listed twice", id)))
		}
		r.pages[id] = PageRule{Roles: lo.Uniq(rule.Roles), Everyone: rule.Everyone}
	}

	for _, item := range policy.Menu {
		item.Page = normalize(item.Page)
		if _, ok := r.pages[item.Page]; !ok {
			return nil, fmt.Errorf("authz.NewResolver: %w",
				invalidPolicy(FieldMenu, apperr.RuleNotFound, fmt.Sprintf("menu page %q has no rule", item.Page)))
		}
		r.menu = append(r.menu, item)
	}

	rule, ok := r.pages[r.defaultPage]
	if !ok {
		return nil, fmt.Errorf("authz.NewResolver: %w",
			invalidPolicy(FieldDefaultPage, apperr.RuleNotFound, fmt.Sprintf("default page %q has no rule", r.defaultPage)))
	}
	if !rule.Everyone {
		return nil, fmt.Errorf("authz.NewResolver: %w",
			invalidPolicy(FieldDefaultPage, apperr.RuleForbidden, fmt.Sprintf("default page %q must be open to everyone", r.defaultPage)))
	}
	if r.loginPath == "" {
		return nil, fmt.Errorf("authz.NewResolver: %w", invalidPolicy(FieldLoginPath, apperr.RuleRequired, "login path is required"))
	}

	return r, nil
}

// CanAccess reports whether any held role is allowed on page. Pages without a rule
// are closed to everybody.
func (r *Resolver) CanAccess(page PageID, roles []RoleID) bool {
	rule, ok := r.pages[normalize(page)]
	if !ok {
		return false
	}
	return allowed(rule, roles)
}

// AllowedPages returns every page the role set may open, sorted.
func (r *Resolver) AllowedPages(roles []RoleID) []PageID {
	out := lo.Filter(lo.Keys(r.pages), func(page PageID, _ int) bool {
		return allowed(r.pages[page], roles)
	})
	slices.Sort(out)

	return out
}

// VisibleMenuItems filters the menu catalog, keeping its order.
func (r *Resolver) VisibleMenuItems(roles []RoleID) []MenuItem {
	return lo.Filter(r.menu, func(item MenuItem, _ int) bool {
		return allowed(r.pages[item.Page], roles)
	})
}

// Guard decides what a route guard does for page. It is evaluated on every call so a
// role change is never answered from a stale decision.
func (r *Resolver) Guard(subject Subject, page PageID) Decision {
	page = normalize(page)
	d := Decision{Page: page}

	switch {
	case subject.Loading:
		d.State = GuardLoading
	case !subject.Authenticated:
		d.State = GuardUnauthenticated
		d.RedirectPath = r.loginPath
	case !r.CanAccess(page, subject.Roles):
		d.State = GuardUnauthorized
		d.RedirectPage = r.defaultPage
	default:
		d.State = GuardAuthorized
	}
	r.metrics.GuardDecided(string(d.State))

	return d
}

func (r *Resolver) DefaultPage() PageID {
	return r.defaultPage
}

func (r *Resolver) LoginPath() string {
	return r.loginPath
}

// Roles returns the role catalog.
func (r *Resolver) Roles() []Role {
	return slices.Clone(r.roles)
}

// RoleByName looks a catalogued role up by name, ignoring case.
func (r *Resolver) RoleByName(name string) (RoleID, error) {
	role, ok := lo.Find(r.roles, func(role Role) bool {
		return strings.EqualFold(role.Name, strings.TrimSpace(name))
	})
	if !ok {
		return 0, fmt.Errorf("authz.Resolver.RoleByName: %w", ErrUnknownRole(name))
	}

	return role.ID, nil
}

// RoleIDs converts role IDs of any integer kind into RoleIDs, dropping duplicates.
func RoleIDs[T ~int | ~int32 | ~int64](ids []T) []RoleID {
	return lo.Uniq(lo.Map(ids, func(id T, _ int) RoleID { return RoleID(id) }))
}

func allowed(rule PageRule, roles []RoleID) bool {
	return rule.Everyone || lo.Some(rule.Roles, roles)
}

func normalize(page PageID) PageID {
	return PageID(strings.ToLower(strings.TrimSpace(string(page))))
}
