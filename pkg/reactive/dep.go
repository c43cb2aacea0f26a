package reactive

import (
	"container/list"
	"fmt"
	"sort"
	"sync"

	"github.com/vango-dev/reactive/internal/access"
)

// graphMu serializes every mutation of the dependency graph: the target map,
// each Dep's member list and each subscriber's own dep list. It is never held
// while a subscriber body or scheduler runs.
var graphMu sync.Mutex

// Dep is the set of subscribers registered against one (target, key) pair,
// one Ref or one Computed. Members are kept in the order they joined.
type Dep struct {
	subs  *list.List
	index map[*ReactiveEffect]*list.Element

	// owner and key describe the Dep in diagnostics and snapshots.
	owner string
	key   any
}

func newDep(owner string, key any) *Dep {
	return &Dep{
		subs:  list.New(),
		index: make(map[*ReactiveEffect]*list.Element),
		owner: owner,
		key:   key,
	}
}

// add appends e unless it is already a member. Callers hold graphMu.
func (d *Dep) add(e *ReactiveEffect) bool {
	if _, ok := d.index[e]; ok {
		return false
	}
	d.index[e] = d.subs.PushBack(e)
	return true
}

// remove drops e from the set. Callers hold graphMu.
func (d *Dep) remove(e *ReactiveEffect) {
	if el, ok := d.index[e]; ok {
		d.subs.Remove(el)
		delete(d.index, e)
	}
}

// snapshot copies the members in join order. Callers hold graphMu.
func (d *Dep) snapshot() []*ReactiveEffect {
	subs := make([]*ReactiveEffect, 0, d.subs.Len())
	for el := d.subs.Front(); el != nil; el = el.Next() {
		subs = append(subs, el.Value.(*ReactiveEffect))
	}
	return subs
}

// Len returns the number of subscribers.
func (d *Dep) Len() int {
	graphMu.Lock()
	defer graphMu.Unlock()
	return d.subs.Len()
}

// Has reports whether e is subscribed.
func (d *Dep) Has(e *ReactiveEffect) bool {
	graphMu.Lock()
	defer graphMu.Unlock()
	_, ok := d.index[e]
	return ok
}

// Subscribers returns the subscribers in notification order.
func (d *Dep) Subscribers() []*ReactiveEffect {
	graphMu.Lock()
	defer graphMu.Unlock()
	return d.snapshot()
}

// keyDeps maps property keys of one target to their Deps.
type keyDeps map[any]*Dep

// targetMap is the dependency graph. Entries are created on the first
// tracked read of a (target, key) and live until Release is called for the
// target.
var targetMap = make(map[access.ID]keyDeps)

// iterationKey is the pseudo-key tracked by Keys and Len and triggered when a
// key is added or removed.
type iterationKey struct{}

func (iterationKey) String() string { return "<iterate>" }

var iterateKey any = iterationKey{}

// Track records the running subscriber as a dependent of target[key].
// It does nothing outside a running subscriber or while tracking is paused.
// target must be the raw object, not a wrapper.
func Track(target, key any) {
	ctx := lookupTrackingContext()
	if !ctx.tracking() {
		return
	}
	id, ok := access.Identity(target)
	if !ok {
		return
	}
	k, ok := access.NormalizeKey(key)
	if !ok {
		return
	}
	track(ctx, id, k, OpGet)
}

// Trigger notifies every subscriber of target[key]. A key nobody read inside
// a subscriber has no Dep, and triggering it is a no-op.
func Trigger(target, key any) {
	id, ok := access.Identity(target)
	if !ok {
		return
	}
	k, ok := access.NormalizeKey(key)
	if !ok {
		return
	}
	trigger(id, k, OpSet)
}

func track(ctx *trackingContext, id access.ID, key any, op OpType) {
	if !ctx.tracking() {
		return
	}

	graphMu.Lock()
	deps := targetMap[id]
	if deps == nil {
		deps = make(keyDeps)
		targetMap[id] = deps
	}
	dep := deps[key]
	if dep == nil {
		dep = newDep(id.String(), key)
		deps[key] = dep
	}
	graphMu.Unlock()

	trackEffects(ctx, dep, op)
}

// trackEffects subscribes the running subscriber to dep. Re-adding an
// existing member changes neither the Dep nor the subscriber's dep list.
func trackEffects(ctx *trackingContext, dep *Dep, op OpType) {
	if !ctx.tracking() {
		return
	}
	e := ctx.activeEffect
	if !e.Active() {
		return
	}

	graphMu.Lock()
	added := dep.add(e)
	if added {
		e.deps = append(e.deps, dep)
	}
	graphMu.Unlock()

	if !added {
		return
	}
	if e.onTrack != nil {
		e.onTrack(DebugEvent{Effect: e.Info(), Target: dep.owner, Key: dep.key, Op: op})
	}
	currentInstrumentation().Tracked(e.Info(), dep.key)
}

func trigger(id access.ID, key any, op OpType) {
	graphMu.Lock()
	dep := targetMap[id][key]
	graphMu.Unlock()

	if dep == nil {
		return
	}
	triggerEffects(dep, op)
}

// triggerEffects notifies a snapshot of dep's members taken before the first
// notification, so subscribers re-joining dep during their own run do not
// disturb the pass. Computed subscribers are invalidated before any plain
// subscriber runs; otherwise an effect reading both a source and a computed
// over it would see the stale cached value.
func triggerEffects(dep *Dep, op OpType) {
	graphMu.Lock()
	subs := dep.snapshot()
	graphMu.Unlock()

	currentInstrumentation().Triggered(dep.key, len(subs))
	if len(subs) == 0 {
		return
	}

	running := activeEffect()
	for _, e := range subs {
		if e.computed {
			triggerEffect(e, running, dep, op)
		}
	}
	for _, e := range subs {
		if !e.computed {
			triggerEffect(e, running, dep, op)
		}
	}
}

func triggerEffect(e, running *ReactiveEffect, dep *Dep, op OpType) {
	// A subscriber writing a value it reads does not re-enter itself.
	if e == running && !e.allowRecurse {
		return
	}
	// Stopped earlier in this same pass.
	if !e.Active() {
		return
	}
	if e.onTrigger != nil {
		e.onTrigger(DebugEvent{Effect: e.Info(), Target: dep.owner, Key: dep.key, Op: op})
	}
	if e.scheduler != nil {
		e.scheduler()
	} else {
		e.Run()
	}
}

// Release removes every graph entry and cached wrapper for target. Subscribers
// that read it stop being notified about it until they read it again.
// Long-lived processes call this for targets they are done with.
func Release(target any) {
	target = ToRaw(target)
	id, ok := access.Identity(target)
	if !ok {
		return
	}

	graphMu.Lock()
	delete(targetMap, id)
	graphMu.Unlock()

	forgetWrappers(id)
}

// GraphStats summarizes the size of the dependency graph.
type GraphStats struct {
	Targets       int `json:"targets"`
	Deps          int `json:"deps"`
	Subscriptions int `json:"subscriptions"`
}

// Stats returns the current size of the dependency graph. Refs and Computeds
// own their Deps directly and are not counted.
func Stats() GraphStats {
	graphMu.Lock()
	defer graphMu.Unlock()

	var s GraphStats
	s.Targets = len(targetMap)
	for _, deps := range targetMap {
		s.Deps += len(deps)
		for _, dep := range deps {
			s.Subscriptions += dep.subs.Len()
		}
	}
	return s
}

// DepSnapshot is a serializable view of one Dep.
type DepSnapshot struct {
	Target      string       `json:"target"`
	Key         string       `json:"key"`
	Subscribers []EffectInfo `json:"subscribers"`
}

// Snapshot returns every Dep in the graph, sorted by target and key.
func Snapshot() []DepSnapshot {
	graphMu.Lock()
	out := make([]DepSnapshot, 0, len(targetMap))
	for _, deps := range targetMap {
		for key, dep := range deps {
			snap := DepSnapshot{Target: dep.owner, Key: fmt.Sprint(key)}
			for _, e := range dep.snapshot() {
				snap.Subscribers = append(snap.Subscribers, e.Info())
			}
			out = append(out, snap)
		}
	}
	graphMu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Target != out[j].Target {
			return out[i].Target < out[j].Target
		}
		return out[i].Key < out[j].Key
	})
	return out
}
