// Package personarec embeds the persona-aware venue recommender in a Go program.
//
// The client runs the same pipeline as the personarec service: venues are scored against
// the persona archetypes, written to the graph, embedded and indexed, and queried by
// free text restricted to a city and category.
//
// Without WithValkey and WithNeo4j everything is kept in process memory:
//
//	client, _ := personarec.New(ctx,
//	    personarec.WithEmbedder(myEmbedder),
//	    personarec.WithScorer(myScorer),
//	)
//	defer client.Close()
//
//	_, _ = client.Ingest(ctx, venues)
//	recs, _ := client.Recommend(ctx, personarec.RecommendRequest{
//	    Text:     "quiet place to read",
//	    City:     "Austin",
//	    Category: "Cafe",
//	})
package personarec
