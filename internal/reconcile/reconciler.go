// Package reconcile compares a page item's "published in" claims with the
// resolved target and decides the smallest edit that aligns them.
package reconcile

import (
	"fmt"

	"github.com/ppiankov/wikipub/internal/model"
)

// Reconciler computes decisions for one property. It never touches a store.
type Reconciler struct {
	property model.PropertyID
}

// New creates a reconciler for prop (e.g. P1433)
func New(prop model.PropertyID) *Reconciler {
	return &Reconciler{property: prop}
}

// Reconcile decides what to do with claims given the resolution.
// Distinct current targets always escalate, whatever was resolved.
func (r *Reconciler) Reconcile(claims []model.Claim, res model.Resolution) model.Decision {
	targets := distinctTargets(claims)
	if len(targets) > 1 {
		return r.escalate(targets, res, fmt.Sprintf("claims point at %d different targets", len(targets)))
	}

	switch res.Kind {
	case model.KindResolved:
		return r.toward(claims, model.ItemTarget(res.Target), model.TagForStrategy(res.Strategy))

	case model.KindAmbiguous:
		if len(targets) == 1 && targets[0].IsItem() && res.HasCandidate(targets[0].Item) {
			d := r.toward(claims, targets[0], model.TagDuplicate)
			d.Reason = joinReason("current target is one of the candidates", d.Reason)
			return d
		}
		if len(claims) == 0 {
			return r.escalate(nil, res, "cannot add, ambiguous")
		}
		return r.escalate(targets, res, "current target is not among the candidates")

	default:
		if len(claims) == 0 {
			reason := res.Reason
			if reason == "" {
				reason = "cannot resolve"
			}
			return model.Decision{Action: model.ActionUnresolved, Property: r.property, Reason: reason}
		}
		d := r.toward(claims, targets[0], model.TagDuplicate)
		d.Reason = joinReason("expected target unresolved, keeping "+targets[0].String(), d.Reason)
		return d
	}
}

// toward aligns claims that all share one target with expected
func (r *Reconciler) toward(claims []model.Claim, expected model.Target, addTag model.EditTag) model.Decision {
	d := model.Decision{Property: r.property, Expected: expected.Item}

	if len(claims) == 0 {
		d.Action = model.ActionAdd
		d.Tag = addTag
		d.Reason = "no claim yet"
		return d
	}

	survivor := pickSurvivor(claims)
	remove := redundant(claims, survivor)

	if claims[0].Target == expected {
		d.Survivor = &survivor
		if len(remove) == 0 {
			d.Action = model.ActionNone
			d.Reason = "claim already matches"
			return d
		}
		d.Action = model.ActionDedup
		d.Tag = model.TagDuplicate
		d.Remove = remove
		d.Reason = fmt.Sprintf("%d redundant claims without qualifiers", len(remove))
		return d
	}

	retarget := survivor
	updated := survivor
	updated.Target = expected
	d.Action = model.ActionReplace
	d.Tag = model.TagMismatch
	d.Retarget = &retarget
	d.Survivor = &updated
	d.Remove = remove
	d.Reason = fmt.Sprintf("claim points at %s, expected %s", survivor.Target, expected)
	return d
}

func (r *Reconciler) escalate(targets []model.Target, res model.Resolution, reason string) model.Decision {
	return model.Decision{
		Action:     model.ActionEscalate,
		Property:   r.property,
		Targets:    targets,
		Candidates: res.Candidates,
		Reason:     reason,
	}
}

// distinctTargets returns claim targets in first-seen order
func distinctTargets(claims []model.Claim) []model.Target {
	var out []model.Target
	seen := make(map[model.Target]bool)
	for _, c := range claims {
		if !seen[c.Target] {
			seen[c.Target] = true
			out = append(out, c.Target)
		}
	}
	return out
}

// pickSurvivor prefers the first qualified claim, then the first claim
func pickSurvivor(claims []model.Claim) model.Claim {
	for _, c := range claims {
		if c.HasQualifiers() {
			return c
		}
	}
	return claims[0]
}

// redundant lists unqualified claims other than the survivor. Qualified
// claims are never removed and the survivor always keeps the target alive.
func redundant(claims []model.Claim, survivor model.Claim) []model.Claim {
	var out []model.Claim
	for _, c := range claims {
		if c.HasQualifiers() || c.ID == survivor.ID {
			continue
		}
		out = append(out, c)
	}
	return out
}

func joinReason(a, b string) string {
	if b == "" {
		return a
	}
	return a + "; " + b
}
