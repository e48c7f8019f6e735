package main

import (
	"context"
	"fmt"
	"log"

	"github.com/studypal/textbase"
	"github.com/studypal/textbase/helper"
	"github.com/studypal/textbase/model"
)

var samplePages = []model.PageBlock{
	{Page: 41, Text: `第七单元 长方形和正方形
第一课 周长
封闭图形一周的长度，就是它的周长。
三角形的周长等于三条边长度的和。`},
	{Page: 48, Text: `第二课 长方形的周长
长方形的周长 =（长 + 宽）× 2。
正方形的周长 = 边长 × 4。`},
}

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Name:     "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
	}

	tb, err := textbase.New(dbConfig, 384)
	if err != nil {
		log.Fatalf("Failed to create textbase: %v", err)
	}
	defer tb.Close()

	// Set up the local embedder (all-MiniLM-L6-v2, 384 dimensions)
	if err := tb.UseLocalEmbedder(); err != nil {
		log.Fatalf("Failed to set up embedder: %v", err)
	}

	doc := &model.Document{
		Title:   "三年级数学上册",
		Source:  "math_grade3_vol1.pdf",
		Subject: "数学",
		Grade:   "三年级",
		Format:  "pdf",
		Metadata: model.Metadata{
			"publisher": "人教版",
		},
	}

	report, err := tb.IngestDocument(context.Background(), doc, samplePages)
	if err != nil {
		log.Fatalf("Failed to ingest document: %v", err)
	}
	fmt.Printf("Ingested %d chunks (%d duplicates, %d failed)\n", report.Inserted, report.Duplicate, report.Failed)

	config := model.DefaultQueryConfig()
	config.Filter = model.QueryFilter{Subject: "数学", Grade: "三年级"}

	results, err := tb.Query(context.Background(), "三角形的周长怎么算", config)
	if err != nil {
		log.Fatalf("Failed to query: %v", err)
	}

	for _, result := range results {
		fmt.Printf("%d. (score %.3f) %s\n", result.Rank, result.Score, result.Chunk.Content)
		fmt.Printf("   出处: %s %s %s 第%d页 (%s)\n",
			result.Citation.Subject, result.Citation.Grade, result.Citation.Unit,
			result.Citation.PageStart, result.Citation.Source)
	}
}
