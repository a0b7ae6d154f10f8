package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidPage is returned when the requested page does not exist. Handlers
// surface it as a 404 rather than a generic validation failure.
var ErrInvalidPage = errors.New("invalid page")

// Bounds carries the configured limits applied while validating title queries.
type Bounds struct {
	RatingMin       int
	RatingMax       int
	YearMin         int
	YearMax         int
	DefaultPageSize int
	MaxPageSize     int
}

// TitleQuery is a validated catalogue query ready to be compiled to SQL.
type TitleQuery struct {
	Search   string
	Kind     string
	GenreIDs []int

	YearStart   *int
	YearEnd     *int
	RatingStart *int
	RatingEnd   *int

	// OrderField is one of id, name, release_date, rating. When BestMatch is
	// set the field ordering is ignored and ranking applies instead.
	OrderField string
	OrderDesc  bool
	BestMatch  bool

	Page     int
	PageSize int
	All      bool
}

var orderFields = map[string]string{
	"id":           "id",
	"title":        "name",
	"release_date": "release_date",
	"rating":       "rating",
}

// ParseTitleQuery validates the request parameters for listing titles. Every
// failure carries the message returned verbatim to the client.
func ParseTitleQuery(values url.Values, b Bounds) (TitleQuery, error) {
	q := TitleQuery{
		Search:     strings.TrimSpace(values.Get("search")),
		Kind:       "all",
		OrderField: "rating",
		OrderDesc:  true,
		Page:       1,
		PageSize:   b.DefaultPageSize,
	}

	if kind := values.Get("movie_or_tv"); kind != "" {
		switch kind {
		case "movie", "tv", "all":
			q.Kind = kind
		default:
			return TitleQuery{}, fmt.Errorf("invalid movie_or_tv value: %s", kind)
		}
	}

	if raw := values.Get("genres"); raw != "" {
		for _, token := range strings.Split(raw, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(token))
			if err != nil {
				return TitleQuery{}, errors.New("invalid genre ids, expected a comma-separated list of integers")
			}
			q.GenreIDs = append(q.GenreIDs, id)
		}
	}

	if raw := values.Get("year_range"); raw != "" {
		start, end, err := parseYearRange(raw, b)
		if err != nil {
			return TitleQuery{}, err
		}
		q.YearStart, q.YearEnd = &start, &end
	}

	if raw := values.Get("rating_range"); raw != "" {
		start, end, err := parseRatingRange(raw, b)
		if err != nil {
			return TitleQuery{}, err
		}
		q.RatingStart, q.RatingEnd = &start, &end
	}

	if raw := values.Get("order_by"); raw != "" {
		field := raw
		desc := false
		if strings.HasPrefix(field, "-") {
			field = field[1:]
			desc = true
		}
		if field == "best_match" && q.Search != "" {
			q.BestMatch = true
			q.OrderDesc = desc
		} else if column, ok := orderFields[field]; ok {
			q.OrderField = column
			q.OrderDesc = desc
		} else {
			return TitleQuery{}, fmt.Errorf("invalid ordering parameter: %s", field)
		}
	}

	if raw := values.Get("page_size"); raw != "" {
		if raw == "all" {
			q.All = true
		} else {
			size, err := strconv.Atoi(raw)
			if err != nil {
				return TitleQuery{}, errors.New(`page size must be an integer or "all"`)
			}
			if size < 1 {
				return TitleQuery{}, errors.New(`page size must be an integer or "all"`)
			}
			if size > b.MaxPageSize {
				size = b.MaxPageSize
			}
			q.PageSize = size
		}
	}

	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return TitleQuery{}, ErrInvalidPage
		}
		q.Page = page
	}

	return q, nil
}

func parseYearRange(raw string, b Bounds) (int, int, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, errors.New("invalid year range format, expected 'startYear,endYear'")
	}

	start, errStart := strconv.Atoi(strings.TrimSpace(parts[0]))
	end, errEnd := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errStart != nil || errEnd != nil {
		return 0, 0, errors.New("both year range values must be integers")
	}

	if start > end {
		return 0, 0, errors.New("start year must be less than or equal to end year")
	}

	currentYear := time.Now().Year()
	if start < 0 || end > currentYear {
		return 0, 0, errors.New("years must be positive and less than or equal to the current year")
	}

	yearMax := b.YearMax
	if yearMax == 0 {
		yearMax = currentYear
	}
	if start < b.YearMin || end > yearMax {
		return 0, 0, fmt.Errorf("the year range must be between %d and %d", b.YearMin, yearMax)
	}

	return start, end, nil
}

func parseRatingRange(raw string, b Bounds) (int, int, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, errors.New("invalid range format, must be 'start,end'")
	}

	start, errStart := strconv.Atoi(strings.TrimSpace(parts[0]))
	end, errEnd := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errStart != nil || errEnd != nil {
		return 0, 0, errors.New("both range values must be integers")
	}

	if start > end {
		return 0, 0, errors.New("start range must be less than or equal to end range")
	}

	if start < b.RatingMin || end > b.RatingMax {
		return 0, 0, fmt.Errorf("the range must be between %d and %d", b.RatingMin, b.RatingMax)
	}

	return start, end, nil
}
