package templates

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"mailcraft/internal/repo"
)

const dateOnly = "2006-01-02"

// ParseListQuery разбирает query-строку списка. Некорректные значения
// не ошибка: они просто игнорируются и действуют значения по умолчанию.
func ParseListQuery(q url.Values) repo.TemplateFilter {
	f := repo.TemplateFilter{
		Page:       positiveInt(q.Get("page")),
		Limit:      positiveInt(q.Get("limit")),
		Name:       strings.TrimSpace(q.Get("name")),
		Tag:        strings.TrimSpace(q.Get("tag")),
		CustomerID: strings.TrimSpace(q.Get("customerId")),
		SortBy:     strings.TrimSpace(q.Get("sortBy")),
		SortDir:    strings.ToLower(strings.TrimSpace(q.Get("sortDir"))),
	}

	for _, s := range splitList(q, "tags") {
		if id, err := strconv.ParseUint(s, 10, 64); err == nil && id > 0 {
			f.TagIDs = append(f.TagIDs, uint(id))
		}
	}
	for _, s := range splitList(q, "statusIds") {
		if id, err := strconv.Atoi(s); err == nil && id >= 0 {
			f.StatusIDs = append(f.StatusIDs, id)
		}
	}

	f.CreatedFrom = parseBound(q.Get("createdFrom"), false)
	f.CreatedTo = parseBound(q.Get("createdTo"), true)
	f.UpdatedFrom = parseBound(q.Get("updatedFrom"), false)
	f.UpdatedTo = parseBound(q.Get("updatedTo"), true)

	if b, err := strconv.ParseBool(strings.TrimSpace(q.Get("hasImages"))); err == nil {
		f.HasImages = &b
	}
	return f
}

func positiveInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// splitList принимает и ?tags=1,2, и ?tags=1&tags=2 (и tags[]=).
func splitList(q url.Values, key string) []string {
	var out []string
	for _, raw := range append(q[key], q[key+"[]"]...) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// parseBound: RFC3339 берётся как есть; дата без времени — начало дня,
// а для верхней границы конец дня (23:59:59.999) в UTC.
func parseBound(s string, upper bool) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t = t.UTC()
		return &t
	}
	d, err := time.ParseInLocation(dateOnly, s, time.UTC)
	if err != nil {
		return nil
	}
	if upper {
		d = d.Add(24*time.Hour - time.Millisecond)
	}
	return &d
}
