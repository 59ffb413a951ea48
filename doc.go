// Package lakescan samples and queries large delimited files (CSV, TSV,
// pipe-separated, optionally compressed) stored in object storage without
// downloading them.
//
// # Quick Start
//
//	mux := blobstore.NewMux(nil)
//	mux.Handle("health", s3Store)
//	reg := registry.NewMemoryRegistry(registry.Dataset{
//	    Name: "places", Bucket: "health", Prefix: "cdc/places.csv",
//	})
//	eng, _ := lakescan.New(mux, reg)
//	defer eng.Close()
//
//	res, _ := eng.GetIntelligentSample(ctx, "places", "auto", "diabetes by county in Colorado")
//	fmt.Println(res.Strategy.Name, len(res.Rows), res.Representativeness)
//
// # Sampling
//
// GetIntelligentSample picks a strategy from the dataset size and the
// question, then either reads a bounded head and midpoint window of the
// object or, when the question names filters (state, county, year, health
// measure), scans the whole object window by window for matching rows.
// Every sample carries column statistics, quality scores and a
// representativeness estimate.
//
// # Filtered Queries
//
//	res, _ := eng.QueryWithFilters(ctx, "places", filter.Map{"state": "GA"}, 100)
//	fmt.Println(res.TotalMatchCount, res.MatchedFilters)
//
// Scans stop at a safety ceiling of 50,000 rows and skip windows whose
// range read fails.
//
// # Caching
//
// Sample and query results are cached for 10 minutes. The cache supports
// substring invalidation, and a background warmer refreshes catalog
// aggregates every 10 minutes:
//
//	eng.StartWarming(ctx)
//	eng.CacheInvalidate("places")
//
// # Configuration
//
// Package config builds stores, the dataset registry and engine options from
// a YAML file, package metrics exports the engine's MetricsCollector events
// to Prometheus, and cmd/lakescan wraps both in a command-line tool.
package lakescan
