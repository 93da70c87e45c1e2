package search

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"Melodix/model"

	"github.com/agnivade/levenshtein"
)

// 可检索字段
const (
	FieldType        = "type"
	FieldName        = "name"
	FieldID          = "id"
	FieldGeneratedID = "generatedID"
)

const (
	CombineOr  = "OR"
	CombineAnd = "AND"

	prefixWeight = 0.375
	fuzzyWeight  = 0.45

	// BM25+ 参数
	bm25K = 1.2
	bm25B = 0.7
	bm25D = 0.5
)

var (
	ErrDuplicateKey = errors.New("duplicate index key")
	ErrEmptyKey     = errors.New("empty index key")
)

// Options configures how records are indexed.
type Options struct {
	Fields   []string
	Fuzzy    float64 // < 1 表示按词长比例计算编辑距离，>= 1 表示固定距离
	MaxFuzzy int
}

// DefaultOptions 曲库索引的默认配置
func DefaultOptions() Options {
	return Options{
		Fields:   []string{FieldType, FieldName, FieldID, FieldGeneratedID},
		Fuzzy:    0.3,
		MaxFuzzy: 6,
	}
}

// SearchOptions tunes a single query. The zero value searches every indexed
// field with the index's fuzzy tolerance and OR semantics.
type SearchOptions struct {
	Fields      []string
	Fuzzy       float64
	NoFuzzy     bool
	Prefix      bool
	PrefixLast  bool // 只对最后一个词做前缀匹配
	CombineWith string
	Limit       int
}

// Result 一条搜索结果
type Result struct {
	model.SearchRecord
	Score      float64             `json:"score"`
	Terms      []string            `json:"terms"`
	QueryTerms []string            `json:"queryTerms"`
	Match      map[string][]string `json:"match"`
}

type posting map[int]int // 文档序号 -> 词频

// Index is an immutable in-memory inverted index over search records.
type Index struct {
	opts       Options
	fields     []string
	fieldIndex map[string]int

	docs []model.SearchRecord
	keys map[string]int

	terms map[string][]posting // 词 -> 每个字段的倒排表
	vocab []string

	fieldLength    [][]int
	avgFieldLength []float64

	library model.Library
}

// NewIndex builds an index over records. Every record must carry a unique,
// non-empty GeneratedID.
func NewIndex(records []model.SearchRecord, opts Options) (*Index, error) {
	if len(opts.Fields) == 0 {
		opts.Fields = DefaultOptions().Fields
	}
	if opts.MaxFuzzy <= 0 {
		opts.MaxFuzzy = 6
	}

	idx := &Index{
		opts:        opts,
		fields:      opts.Fields,
		fieldIndex:  make(map[string]int, len(opts.Fields)),
		docs:        make([]model.SearchRecord, 0, len(records)),
		keys:        make(map[string]int, len(records)),
		terms:       make(map[string][]posting),
		fieldLength: make([][]int, 0, len(records)),
	}
	for i, f := range opts.Fields {
		idx.fieldIndex[f] = i
	}

	totals := make([]int, len(idx.fields))
	for _, rec := range records {
		if rec.GeneratedID == "" {
			return nil, fmt.Errorf("%w: %s %q", ErrEmptyKey, rec.Type, rec.Name)
		}
		if _, dup := idx.keys[rec.GeneratedID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, rec.GeneratedID)
		}

		docID := len(idx.docs)
		idx.docs = append(idx.docs, rec)
		idx.keys[rec.GeneratedID] = docID

		lengths := make([]int, len(idx.fields))
		for fi, field := range idx.fields {
			tokens := tokenize(fieldValue(rec, field))
			lengths[fi] = len(tokens)
			totals[fi] += len(tokens)
			for _, term := range tokens {
				idx.addTerm(term, fi, docID)
			}
		}
		idx.fieldLength = append(idx.fieldLength, lengths)
	}

	idx.avgFieldLength = make([]float64, len(idx.fields))
	if n := len(idx.docs); n > 0 {
		for fi, total := range totals {
			idx.avgFieldLength[fi] = float64(total) / float64(n)
		}
	}

	idx.vocab = make([]string, 0, len(idx.terms))
	for term := range idx.terms {
		idx.vocab = append(idx.vocab, term)
	}
	sort.Strings(idx.vocab)

	return idx, nil
}

func (idx *Index) addTerm(term string, field, docID int) {
	fields, ok := idx.terms[term]
	if !ok {
		fields = make([]posting, len(idx.fields))
		idx.terms[term] = fields
	}
	if fields[field] == nil {
		fields[field] = make(posting)
	}
	fields[field][docID]++
}

func fieldValue(rec model.SearchRecord, field string) string {
	switch field {
	case FieldType:
		return string(rec.Type)
	case FieldName:
		return rec.Name
	case FieldID:
		return rec.ID.String()
	case FieldGeneratedID:
		return rec.GeneratedID
	}
	return ""
}

// Len 索引中的文档数量
func (idx *Index) Len() int {
	return len(idx.docs)
}

// TermCount 词表大小
func (idx *Index) TermCount() int {
	return len(idx.vocab)
}

// Library returns the document the index was built from.
func (idx *Index) Library() model.Library {
	return idx.library
}

// Get 按主键取回记录
func (idx *Index) Get(key string) (model.SearchRecord, bool) {
	docID, ok := idx.keys[key]
	if !ok {
		return model.SearchRecord{}, false
	}
	return idx.docs[docID], true
}

type docScore struct {
	score      float64
	queryTerms []string
	terms      []string
	match      map[string][]string
}

func (d *docScore) addQueryTerm(term string) {
	for _, t := range d.queryTerms {
		if t == term {
			return
		}
	}
	d.queryTerms = append(d.queryTerms, term)
}

func (d *docScore) addMatch(term, field string) {
	fields, ok := d.match[term]
	if !ok {
		d.terms = append(d.terms, term)
	}
	for _, f := range fields {
		if f == field {
			return
		}
	}
	d.match[term] = append(fields, field)
}

func (d *docScore) merge(other *docScore) {
	d.score += other.score
	for _, t := range other.queryTerms {
		d.addQueryTerm(t)
	}
	for _, t := range other.terms {
		for _, f := range other.match[t] {
			d.addMatch(t, f)
		}
	}
}

// Search returns the records matching query, most relevant first. An empty
// query returns an empty slice.
func (idx *Index) Search(query string, opts SearchOptions) []Result {
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return []Result{}
	}

	fields := idx.resolveFields(opts.Fields)
	if len(fields) == 0 {
		return []Result{}
	}

	var combined map[int]*docScore
	for i, qt := range queryTerms {
		prefix := opts.Prefix || (opts.PrefixLast && i == len(queryTerms)-1)
		termResults := idx.executeTerm(qt, prefix, idx.maxDistance(qt, opts), fields)

		if combined == nil {
			combined = termResults
			continue
		}
		if strings.EqualFold(opts.CombineWith, CombineAnd) {
			combined = combineAnd(combined, termResults)
		} else {
			combined = combineOr(combined, termResults)
		}
	}

	results := make([]Result, 0, len(combined))
	docIDs := make([]int, 0, len(combined))
	for docID := range combined {
		docIDs = append(docIDs, docID)
	}
	sort.Ints(docIDs)

	for _, docID := range docIDs {
		ds := combined[docID]
		quality := len(ds.queryTerms)
		if quality == 0 {
			quality = 1
		}
		results = append(results, Result{
			SearchRecord: idx.docs[docID],
			Score:        ds.score * float64(quality),
			Terms:        ds.terms,
			QueryTerms:   ds.queryTerms,
			Match:        ds.match,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results
}

func (idx *Index) resolveFields(requested []string) []int {
	if len(requested) == 0 {
		all := make([]int, len(idx.fields))
		for i := range idx.fields {
			all[i] = i
		}
		return all
	}
	out := make([]int, 0, len(requested))
	for _, f := range requested {
		if fi, ok := idx.fieldIndex[f]; ok {
			out = append(out, fi)
		}
	}
	return out
}

func (idx *Index) maxDistance(term string, opts SearchOptions) int {
	if opts.NoFuzzy {
		return 0
	}
	fuzzy := opts.Fuzzy
	if fuzzy <= 0 {
		fuzzy = idx.opts.Fuzzy
	}
	if fuzzy <= 0 {
		return 0
	}
	if fuzzy >= 1 {
		return int(fuzzy)
	}
	d := int(math.Round(float64(utf8.RuneCountInString(term)) * fuzzy))
	if d > idx.opts.MaxFuzzy {
		d = idx.opts.MaxFuzzy
	}
	return d
}

// executeTerm scores every document matching a single query term, directly,
// by prefix or within maxDist edits.
func (idx *Index) executeTerm(term string, prefix bool, maxDist int, fields []int) map[int]*docScore {
	results := make(map[int]*docScore)
	termLen := utf8.RuneCountInString(term)

	if _, ok := idx.terms[term]; ok {
		idx.termResults(term, term, 1, fields, results)
	}

	prefixed := make(map[string]struct{})
	if prefix {
		start := sort.SearchStrings(idx.vocab, term)
		for i := start; i < len(idx.vocab) && strings.HasPrefix(idx.vocab[i], term); i++ {
			candidate := idx.vocab[i]
			prefixed[candidate] = struct{}{}
			candLen := utf8.RuneCountInString(candidate)
			distance := candLen - termLen
			if distance == 0 {
				continue
			}
			weight := prefixWeight * float64(candLen) / (float64(candLen) + 0.3*float64(distance))
			idx.termResults(term, candidate, weight, fields, results)
		}
	}

	if maxDist > 0 {
		for _, candidate := range idx.vocab {
			if _, ok := prefixed[candidate]; ok || candidate == term {
				continue
			}
			candLen := utf8.RuneCountInString(candidate)
			if abs(candLen-termLen) > maxDist {
				continue
			}
			distance := levenshtein.ComputeDistance(term, candidate)
			if distance == 0 || distance > maxDist {
				continue
			}
			weight := fuzzyWeight * float64(candLen) / float64(candLen+distance)
			idx.termResults(term, candidate, weight, fields, results)
		}
	}

	return results
}

func (idx *Index) termResults(sourceTerm, derivedTerm string, weight float64, fields []int, results map[int]*docScore) {
	postings := idx.terms[derivedTerm]
	total := len(idx.docs)

	for _, fi := range fields {
		docs := postings[fi]
		if len(docs) == 0 {
			continue
		}
		fieldName := idx.fields[fi]
		for docID, tf := range docs {
			raw := bm25(tf, len(docs), total, idx.fieldLength[docID][fi], idx.avgFieldLength[fi])
			score := weight * raw

			ds, ok := results[docID]
			if !ok {
				ds = &docScore{match: make(map[string][]string)}
				results[docID] = ds
			}
			ds.score += score
			ds.addQueryTerm(sourceTerm)
			ds.addMatch(derivedTerm, fieldName)
		}
	}
}

func bm25(termFreq, matchingCount, totalCount, fieldLength int, avgFieldLength float64) float64 {
	invDocFreq := math.Log(1 + (float64(totalCount-matchingCount)+0.5)/(float64(matchingCount)+0.5))
	norm := 1.0
	if avgFieldLength > 0 {
		norm = 1 - bm25B + bm25B*float64(fieldLength)/avgFieldLength
	}
	tf := float64(termFreq)
	return invDocFreq * (bm25D + tf*(bm25K+1)/(tf+bm25K*norm))
}

func combineOr(a, b map[int]*docScore) map[int]*docScore {
	for docID, ds := range b {
		if existing, ok := a[docID]; ok {
			existing.merge(ds)
		} else {
			a[docID] = ds
		}
	}
	return a
}

func combineAnd(a, b map[int]*docScore) map[int]*docScore {
	out := make(map[int]*docScore)
	for docID, ds := range b {
		existing, ok := a[docID]
		if !ok {
			continue
		}
		existing.merge(ds)
		out[docID] = existing
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
