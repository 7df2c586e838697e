package corpus

import (
	"sort"
	"strings"

	"github.com/nathoo/netquest/engine/flags"
	"github.com/nathoo/netquest/engine/rules"
	"github.com/nathoo/netquest/types"
)

// Relationships lists the quests connected to one quest.
//
// Previous quests unlock it through completion or an emitted flag. Next
// quests are unlocked by it. Shared quests resolve to the same completion
// flag id.
type Relationships struct {
	Previous []string `json:"previous"`
	Next     []string `json:"next"`
	Shared   []string `json:"shared"`
}

type emission struct {
	quest string
	value string
}

// Graph is the activation graph of a corpus. Build it once per snapshot;
// every query afterwards is a map lookup.
type Graph struct {
	corpus     *Corpus
	emitters   map[string][]emission
	completion map[string]string
	byFlag     map[string][]string
	next       map[string][]string
	prev       map[string][]string
	cycles     map[string][]string
}

// Build indexes emitted flags and trigger edges in O(N*M) for N quests and
// M references per quest.
func Build(c *Corpus) *Graph {
	g := &Graph{
		corpus:     c,
		emitters:   map[string][]emission{},
		completion: map[string]string{},
		byFlag:     map[string][]string{},
		next:       map[string][]string{},
		prev:       map[string][]string{},
	}

	for _, q := range c.Quests() {
		cf := flags.ResolveCompletionFlagID(q)
		g.completion[q.ID] = cf
		g.byFlag[cf] = append(g.byFlag[cf], q.ID)
		for _, f := range flags.EmittedFlags(q) {
			g.emitters[f.Key] = append(g.emitters[f.Key], emission{quest: q.ID, value: f.Value})
		}
	}

	edges := map[[2]string]bool{}
	link := func(from, to string) {
		if from == to || edges[[2]string{from, to}] {
			return
		}
		edges[[2]string{from, to}] = true
		g.next[from] = append(g.next[from], to)
		g.prev[to] = append(g.prev[to], from)
	}

	for _, q := range c.Quests() {
		if q.Trigger == nil {
			continue
		}
		t := rules.NormalizeTrigger(q.Trigger)
		switch t.Type {
		case types.TriggerQuestCompletion:
			for _, id := range t.QuestIDs {
				if c.HasQuest(id) {
					link(id, q.ID)
				}
			}
		case types.TriggerFlagSet:
			for _, id := range g.Emitters(t.FlagKey, t.FlagValue) {
				link(id, q.ID)
			}
		}
	}

	for id := range g.next {
		sort.Strings(g.next[id])
	}
	for id := range g.prev {
		sort.Strings(g.prev[id])
	}
	g.cycles = g.findCycles()
	return g
}

// Corpus returns the snapshot the graph was built from.
func (g *Graph) Corpus() *Corpus { return g.corpus }

// Emitters returns the quests that emit flag key on completion. If value is
// non-empty only emissions of that exact value count.
func (g *Graph) Emitters(key, value string) []string {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	var out []string
	seen := map[string]bool{}
	for _, e := range g.emitters[key] {
		if value != "" && e.value != value {
			continue
		}
		if !seen[e.quest] {
			seen[e.quest] = true
			out = append(out, e.quest)
		}
	}
	sort.Strings(out)
	return out
}

// Next returns the quests unlocked by id.
func (g *Graph) Next(id string) []string { return g.next[id] }

// Previous returns the quests that unlock id.
func (g *Graph) Previous(id string) []string { return g.prev[id] }

// Relationships returns previous, next and shared quests for id.
func (g *Graph) Relationships(id string) Relationships {
	r := Relationships{
		Previous: append([]string{}, g.prev[id]...),
		Next:     append([]string{}, g.next[id]...),
		Shared:   []string{},
	}
	if cf, ok := g.completion[id]; ok {
		for _, other := range g.byFlag[cf] {
			if other != id {
				r.Shared = append(r.Shared, other)
			}
		}
		sort.Strings(r.Shared)
	}
	return r
}

// Cycle returns the activation cycle id belongs to, sorted, or nil. Only
// cycles spanning more than one quest count.
func (g *Graph) Cycle(id string) []string { return g.cycles[id] }

// findCycles runs Tarjan's strongly connected components over the
// activation edges.
func (g *Graph) findCycles() map[string][]string {
	var (
		index   = map[string]int{}
		low     = map[string]int{}
		onStack = map[string]bool{}
		stack   []string
		next    int
		out     = map[string][]string{}
	)

	var connect func(v string)
	connect = func(v string) {
		index[v] = next
		low[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.next[v] {
			if _, seen := index[w]; !seen {
				connect(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}

		if low[v] != index[v] {
			return
		}
		var scc []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		if len(scc) > 1 {
			sort.Strings(scc)
			for _, id := range scc {
				out[id] = scc
			}
		}
	}

	for _, id := range g.corpus.QuestIDs() {
		if _, seen := index[id]; !seen {
			connect(id)
		}
	}
	return out
}
