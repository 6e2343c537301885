package weaviatetest

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/blevlabs/TuningTracker/internal/weaviate"
)

var (
	getPattern       = regexp.MustCompile(`(?s)Get\s*\{\s*(\w+)\s*(?:\((.*?)\))?\s*\{([^{}]*)_additional`)
	conceptsPattern  = regexp.MustCompile(`nearText:\s*\{\s*concepts:\s*(\[.*?\])`)
	vectorPattern    = regexp.MustCompile(`nearVector:\s*\{\s*vector:\s*\[(.*?)\]`)
	certaintyPattern = regexp.MustCompile(`certainty:\s*([-+0-9.eE]+)`)
	limitPattern     = regexp.MustCompile(`limit:\s*(\d+)`)
)

type hit struct {
	obj       weaviate.Object
	certainty float64
}

func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid graphql request: "+err.Error())
		return
	}

	m := getPattern.FindStringSubmatch(req.Query)
	if m == nil {
		graphQLError(w, "Syntax Error: unexpected query shape")
		return
	}
	className, args, props := m[1], m[2], strings.Fields(m[3])

	s.mu.Lock()
	defer s.mu.Unlock()

	class := s.findClass(className)
	if class == nil {
		graphQLError(w, fmt.Sprintf("Cannot query field %q on type \"GetObjectsObj\".", className))
		return
	}
	for _, p := range props {
		if !hasProperty(class, p) {
			graphQLError(w, fmt.Sprintf("Cannot query field %q on type %q.", p, className))
			return
		}
	}

	threshold := 0.0
	if cm := certaintyPattern.FindStringSubmatch(args); cm != nil {
		v, err := strconv.ParseFloat(cm[1], 64)
		if err != nil || v < 0 || v > 1 {
			graphQLError(w, "invalid certainty: "+cm[1])
			return
		}
		threshold = v
	}

	var score func(weaviate.Object) float64
	switch {
	case conceptsPattern.MatchString(args):
		var concepts []string
		if err := json.Unmarshal([]byte(conceptsPattern.FindStringSubmatch(args)[1]), &concepts); err != nil {
			graphQLError(w, "invalid concepts: "+err.Error())
			return
		}
		score = func(o weaviate.Object) float64 { return textCertainty(concepts, o) }
	case vectorPattern.MatchString(args):
		vector, err := parseVector(vectorPattern.FindStringSubmatch(args)[1])
		if err != nil {
			graphQLError(w, err.Error())
			return
		}
		score = func(o weaviate.Object) float64 { return vectorCertainty(vector, o.Vector) }
	}

	var hits []hit
	for _, obj := range s.sortedObjects(className) {
		h := hit{obj: obj}
		if score != nil {
			h.certainty = score(obj)
			if h.certainty < threshold && !s.IgnoreCertainty {
				continue
			}
		}
		hits = append(hits, h)
	}
	if score != nil {
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].certainty > hits[j].certainty })
	}

	limit := 25
	if lm := limitPattern.FindStringSubmatch(args); lm != nil {
		limit, _ = strconv.Atoi(lm[1])
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]map[string]any, 0, len(hits))
	for _, h := range hits {
		row := make(map[string]any, len(props)+1)
		for _, p := range props {
			row[p] = h.obj.Properties[p]
		}
		additional := map[string]any{"id": h.obj.ID}
		if score != nil {
			additional["certainty"] = h.certainty
			additional["distance"] = 2 * (1 - h.certainty)
		}
		row["_additional"] = additional
		results = append(results, row)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"Get": map[string]any{className: results}},
	})
}

// textCertainty is the share of concept words present in the object's string properties.
func textCertainty(concepts []string, obj weaviate.Object) float64 {
	var text []string
	for _, v := range obj.Properties {
		if str, ok := v.(string); ok {
			text = append(text, strings.ToLower(str))
		}
	}
	haystack := strings.Fields(strings.Join(text, " "))
	present := make(map[string]bool, len(haystack))
	for _, word := range haystack {
		present[strings.Trim(word, ".,;:!?\"'")] = true
	}

	var total, found int
	for _, c := range concepts {
		for _, word := range strings.Fields(strings.ToLower(c)) {
			total++
			if present[word] {
				found++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(found) / float64(total)
}

// vectorCertainty maps cosine similarity onto [0,1].
func vectorCertainty(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return (1 + dot/(math.Sqrt(na)*math.Sqrt(nb))) / 2
}

func parseVector(raw string) ([]float32, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
	vector := make([]float32, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q", f)
		}
		vector = append(vector, float32(v))
	}
	return vector, nil
}

func graphQLError(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]any{
		"data":   map[string]any{"Get": nil},
		"errors": []map[string]any{{"message": msg}},
	})
}
