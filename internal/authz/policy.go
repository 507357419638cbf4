// Package authz decides whether a subject may perform an action on a
// resource. The engine is a small ordered rule table evaluated top-down with
// first match wins and deny by default; resource classes contribute traits
// (data), never code, so new resource types register without touching the
// evaluation loop. The engine is pure and stateless after construction.
package authz

import "github.com/spec-kit/tracker-service/internal/domain"

// Action is the operation a subject requests.
type Action string

const (
	ActionList     Action = "list"
	ActionRetrieve Action = "retrieve"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
)

// Safe reports whether the action is read-only.
func (a Action) Safe() bool {
	return a == ActionList || a == ActionRetrieve
}

// Decision is the outcome of an authorization check. Deny is a normal
// outcome, not an error.
type Decision int

const (
	Deny Decision = iota
	Allow
)

// Resource identifies the target of a check: a whole class for list/create,
// a concrete instance (with its owner, when it has one) otherwise.
type Resource struct {
	Class   string
	OwnerID *int64
}

// ClassRef targets a resource class with no particular instance.
func ClassRef(class string) Resource {
	return Resource{Class: class}
}

// InstanceRef targets one concrete resource.
func InstanceRef(class string, ownerID *int64) Resource {
	return Resource{Class: class, OwnerID: ownerID}
}

// Traits are the per-class knobs the rule table consults.
type Traits struct {
	// PublicRead permits safe actions without authentication.
	PublicRead bool
}

// Context carries one authorization question through the rule table.
type Context struct {
	Subject  *domain.Subject
	Action   Action
	Resource Resource
	Traits   Traits
}

// Rule pairs a predicate with its effect.
type Rule struct {
	Name    string
	Matches func(Context) bool
	Effect  Decision
}

// Engine evaluates the ordered rule table.
type Engine struct {
	rules  []Rule
	traits map[string]Traits
}

// Resource class names known to the default policy.
const (
	ClassPost    = "post"
	ClassComment = "comment"
	ClassUser    = "user"
)

// NewEngine builds an engine with the default policy:
//
//  1. safe actions on public-read classes are open to everyone;
//  2. safe actions otherwise require authentication;
//  3. any authenticated subject may create posts and comments;
//  4. an existing post may be mutated by its owner, staff or a superuser;
//  5. a comment may be mutated by its author or a superuser only;
//  6. everything else is denied.
func NewEngine() *Engine {
	e := &Engine{traits: make(map[string]Traits)}
	e.rules = []Rule{
		{
			Name: "safe-public-read",
			Matches: func(c Context) bool {
				return c.Action.Safe() && c.Traits.PublicRead
			},
			Effect: Allow,
		},
		{
			Name: "safe-authenticated",
			Matches: func(c Context) bool {
				return c.Action.Safe() && c.Subject.IsAuthenticated()
			},
			Effect: Allow,
		},
		{
			Name: "create-authenticated",
			Matches: func(c Context) bool {
				return c.Action == ActionCreate && c.Subject.IsAuthenticated() &&
					(c.Resource.Class == ClassPost || c.Resource.Class == ClassComment)
			},
			Effect: Allow,
		},
		{
			Name: "post-mutate-owner-or-staff",
			Matches: func(c Context) bool {
				if c.Resource.Class != ClassPost || !c.Subject.IsAuthenticated() {
					return false
				}
				if c.Action != ActionUpdate && c.Action != ActionDelete {
					return false
				}
				if c.Subject.IsSuperuser || c.Subject.IsStaff {
					return true
				}
				return c.Resource.OwnerID != nil && *c.Resource.OwnerID == c.Subject.ID
			},
			Effect: Allow,
		},
		{
			// Staff are deliberately not exempt here: only the author and
			// superusers may touch a comment.
			Name: "comment-mutate-author-or-superuser",
			Matches: func(c Context) bool {
				if c.Resource.Class != ClassComment || !c.Subject.IsAuthenticated() {
					return false
				}
				if c.Action != ActionUpdate && c.Action != ActionDelete {
					return false
				}
				if c.Subject.IsSuperuser {
					return true
				}
				return c.Resource.OwnerID != nil && *c.Resource.OwnerID == c.Subject.ID
			},
			Effect: Allow,
		},
	}
	return e
}

// RegisterClass records traits for a resource class.
func (e *Engine) RegisterClass(class string, traits Traits) {
	e.traits[class] = traits
}

// Authorize answers one (subject, action, resource) question. A nil subject
// is treated as anonymous; distinguishing unauthenticated from forbidden is
// the caller's job at the boundary.
func (e *Engine) Authorize(subject *domain.Subject, action Action, resource Resource) Decision {
	ctx := Context{
		Subject:  subject,
		Action:   action,
		Resource: resource,
		Traits:   e.traits[resource.Class],
	}
	for _, rule := range e.rules {
		if rule.Matches(ctx) {
			return rule.Effect
		}
	}
	return Deny
}
