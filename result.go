package treesearch

import (
	"time"
)

// Result is the outcome of an Endpoint execution.
//
// It embeds the fetched QueryResult and adds what the endpoint's features
// contributed: facet buckets, pagination and the available sort options.
//
// Example:
//
//	result, err := endpoint.Execute(ctx, siteNode, request)
//	if err != nil {
//	    // Handle error
//	}
//
//	for _, node := range result.Nodes() {
//	    fmt.Println(node.Path())
//	}
//	for _, bucket := range result.Buckets["color"] {
//	    fmt.Printf("%v: %d\n", bucket.Value, bucket.HitCount)
//	}
type Result struct {
	*QueryResult

	request    *Request
	Buckets    map[string][]*ResultBucket
	Pagination *ResultPagination
	Sorting    *ResultSorting
	Duration   time.Duration
}

// Request returns the request that produced this result.
func (r *Result) Request() *Request {
	return r.request
}

// ResultPagination describes the page a result covers.
type ResultPagination struct {
	Offset   int
	PageSize int
}

// ResultSorting describes the sort parameter and the options it accepts.
type ResultSorting struct {
	Param    string
	Selected string
	Options  []*ResultSortingOption
}

// ResultSortingOption is a sort option offered to the client.
type ResultSortingOption struct {
	Label string
	Value string
}
