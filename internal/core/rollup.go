package core

import (
	"sort"
	"strconv"
	"strings"
)

// LedgerRecord is one invoice joined with the project, category and job it
// rolls up into.
type LedgerRecord struct {
	Project  Project
	Category Category
	Job      Job
	Invoice  Invoice
}

type (
	InvoiceNode struct {
		Invoice Invoice
		Balance Balance
	}

	JobNode struct {
		Job      Job
		Total    float64
		Invoices []InvoiceNode
	}

	CategoryNode struct {
		Category Category
		Total    float64
		Jobs     []JobNode
	}

	ProjectNode struct {
		Project    Project
		Total      float64
		Categories []CategoryNode
	}

	// Tree is the Project > Category > Job > Invoice rollup. Totals are
	// gross invoiced cost, not net of payments.
	Tree struct {
		Projects []ProjectNode
		Total    float64
	}
)

// JoinRecords resolves each invoice's project, job and category. Invoices
// whose references do not resolve are returned separately and never reach
// the tree.
func JoinRecords(s Snapshot) (records []LedgerRecord, orphans []Invoice) {
	projects := make(map[int64]Project, len(s.Projects))
	for _, p := range s.Projects {
		projects[p.Code] = p
	}
	categories := make(map[int64]Category, len(s.Categories))
	for _, c := range s.Categories {
		categories[c.Code] = c
	}
	jobs := make(map[int64]Job, len(s.Jobs))
	for _, j := range s.Jobs {
		jobs[j.Code] = j
	}

	records = make([]LedgerRecord, 0, len(s.Invoices))
	for _, inv := range s.Invoices {
		p, okP := projects[inv.ProjectID]
		j, okJ := jobs[inv.JobID]
		if !okP || !okJ {
			orphans = append(orphans, inv)
			continue
		}
		c, okC := categories[j.CategoryID]
		if !okC {
			orphans = append(orphans, inv)
			continue
		}
		records = append(records, LedgerRecord{Project: p, Category: c, Job: j, Invoice: inv})
	}
	return records, orphans
}

// BuildTree groups records by project, category and job and sums invoice
// cost at every level. Every level is ordered by code.
func BuildTree(records []LedgerRecord) Tree {
	type jobAcc struct {
		job      Job
		invoices []InvoiceNode
	}
	type catAcc struct {
		cat  Category
		jobs map[int64]*jobAcc
	}
	type projAcc struct {
		proj Project
		cats map[int64]*catAcc
	}

	grouped := map[int64]*projAcc{}
	for _, r := range records {
		pa, ok := grouped[r.Project.Code]
		if !ok {
			pa = &projAcc{proj: r.Project, cats: map[int64]*catAcc{}}
			grouped[r.Project.Code] = pa
		}
		ca, ok := pa.cats[r.Category.Code]
		if !ok {
			ca = &catAcc{cat: r.Category, jobs: map[int64]*jobAcc{}}
			pa.cats[r.Category.Code] = ca
		}
		ja, ok := ca.jobs[r.Job.Code]
		if !ok {
			ja = &jobAcc{job: r.Job}
			ca.jobs[r.Job.Code] = ja
		}
		ja.invoices = append(ja.invoices, InvoiceNode{Invoice: r.Invoice, Balance: InvoiceBalance(r.Invoice)})
	}

	var tree Tree
	for _, pCode := range sortedKeys(grouped) {
		pa := grouped[pCode]
		pn := ProjectNode{Project: pa.proj}
		for _, cCode := range sortedKeys(pa.cats) {
			ca := pa.cats[cCode]
			cn := CategoryNode{Category: ca.cat}
			for _, jCode := range sortedKeys(ca.jobs) {
				ja := ca.jobs[jCode]
				sort.SliceStable(ja.invoices, func(a, b int) bool {
					return ja.invoices[a].Invoice.Code < ja.invoices[b].Invoice.Code
				})
				jn := JobNode{Job: ja.job, Invoices: ja.invoices}
				for _, in := range ja.invoices {
					jn.Total += in.Invoice.Cost
				}
				cn.Jobs = append(cn.Jobs, jn)
				cn.Total += jn.Total
			}
			pn.Categories = append(pn.Categories, cn)
			pn.Total += cn.Total
		}
		tree.Projects = append(tree.Projects, pn)
		tree.Total += pn.Total
	}
	return tree
}

// Prune returns a copy of the tree without any project, category or job
// whose total is exactly zero. Invoices under a kept job are always kept.
func (t Tree) Prune() Tree {
	out := Tree{Total: t.Total}
	for _, p := range t.Projects {
		if p.Total == 0 {
			continue
		}
		np := ProjectNode{Project: p.Project, Total: p.Total}
		for _, c := range p.Categories {
			if c.Total == 0 {
				continue
			}
			nc := CategoryNode{Category: c.Category, Total: c.Total}
			for _, j := range c.Jobs {
				if j.Total == 0 {
					continue
				}
				nc.Jobs = append(nc.Jobs, j)
			}
			np.Categories = append(np.Categories, nc)
		}
		out.Projects = append(out.Projects, np)
	}
	return out
}

// Depths of a flattened tree row.
const (
	DepthProject = iota
	DepthCategory
	DepthJob
	DepthInvoice
)

// TreeRow is one node of a flattened tree.
type TreeRow struct {
	Depth int
	Key   string
	Label string
	Total float64
}

// Rows flattens the tree depth first, parents before children.
func (t Tree) Rows() []TreeRow {
	var rows []TreeRow
	for _, p := range t.Projects {
		pk := NodeKey(p.Project.Code)
		rows = append(rows, TreeRow{Depth: DepthProject, Key: pk, Label: p.Project.Name, Total: p.Total})
		for _, c := range p.Categories {
			ck := NodeKey(p.Project.Code, c.Category.Code)
			rows = append(rows, TreeRow{Depth: DepthCategory, Key: ck, Label: c.Category.Name, Total: c.Total})
			for _, j := range c.Jobs {
				jk := NodeKey(p.Project.Code, c.Category.Code, j.Job.Code)
				rows = append(rows, TreeRow{Depth: DepthJob, Key: jk, Label: j.Job.Name, Total: j.Total})
				for _, in := range j.Invoices {
					label := in.Invoice.Ref
					if label == "" {
						label = "#" + strconv.FormatInt(in.Invoice.Code, 10)
					}
					rows = append(rows, TreeRow{Depth: DepthInvoice, Key: jk + "/" + strconv.FormatInt(in.Invoice.Code, 10), Label: label, Total: in.Invoice.Cost})
				}
			}
		}
	}
	return rows
}

// NodeKey builds the composite expand key of a node from the codes on its
// path, e.g. "3-7-12" for project 3, category 7, job 12.
func NodeKey(codes ...int64) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = strconv.FormatInt(c, 10)
	}
	return strings.Join(parts, "-")
}

// ExpandState tracks which nodes of one view are expanded. Nodes are
// collapsed unless set, and the state is never persisted.
type ExpandState map[string]bool

func (e ExpandState) Toggle(key string) {
	e[key] = !e[key]
}

func (e ExpandState) Expanded(key string) bool {
	return e[key]
}

// ExpandAll marks every project, category and job of the tree expanded.
func (e ExpandState) ExpandAll(t Tree) {
	for _, r := range t.Rows() {
		if r.Depth < DepthInvoice {
			e[r.Key] = true
		}
	}
}

func (e ExpandState) CollapseAll() {
	for k := range e {
		delete(e, k)
	}
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
