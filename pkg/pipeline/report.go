package pipeline

// Report is the JSON-shaped result both pipelines return, field names and
// nesting carried forward from the original function_app.py's
// _build_response (§12 item 4) rather than reinvented.
type Report struct {
	Status string `json:"status"`

	CosmosConfiguration struct {
		PartitionKey          string `json:"partition_key"`
		ThroughputType        string `json:"throughput_type"`
		IsAutoscale           bool   `json:"is_autoscale"`
		IsServerless          bool   `json:"is_serverless"`
		UsesSharedThroughput  bool   `json:"uses_shared_throughput"`
	} `json:"cosmos_configuration"`

	PerformanceConfiguration struct {
		MaxConcurrentOperations int `json:"max_concurrent_operations"`
		BatchSize               int `json:"batch_size"`
		NumBatchesProcessed     int `json:"num_batches_processed"`
	} `json:"performance_configuration"`

	DataProcessing struct {
		ParentDocuments       int `json:"parent_documents"`
		ChildTablesProcessed  int `json:"child_tables_processed"`
		TotalChildRows        int `json:"total_child_rows"`
	} `json:"data_processing"`

	Results struct {
		TotalDocuments     int     `json:"total_documents"`
		Successful         int     `json:"successful"`
		Failed             int     `json:"failed"`
		SuccessRatePercent float64 `json:"success_rate_percent"`
	} `json:"results"`

	PerformanceMetrics struct {
		ElapsedSeconds         float64 `json:"elapsed_seconds"`
		DocumentRatePerSecond  float64 `json:"document_rate_per_second"`
		TotalRUsConsumed       float64 `json:"total_rus_consumed"`
		RURatePerSecond        float64 `json:"ru_rate_per_second"`
		AvgRUPerDocument       float64 `json:"avg_ru_per_document"`
	} `json:"performance_metrics"`

	FailedDocumentIDs []string `json:"failed_document_ids"`
}

// finalize fills in Status and the derived Results/PerformanceMetrics
// fields once the run's raw counters are known.
func finalize(r *Report, total, successful, failed int, elapsedSeconds, totalRU float64) {
	r.Results.TotalDocuments = total
	r.Results.Successful = successful
	r.Results.Failed = failed
	if total > 0 {
		r.Results.SuccessRatePercent = round2(100 * float64(successful) / float64(total))
	}

	r.PerformanceMetrics.ElapsedSeconds = round2(elapsedSeconds)
	r.PerformanceMetrics.TotalRUsConsumed = round2(totalRU)
	if elapsedSeconds > 0 {
		r.PerformanceMetrics.DocumentRatePerSecond = round2(float64(total) / elapsedSeconds)
		r.PerformanceMetrics.RURatePerSecond = round2(totalRU / elapsedSeconds)
	}
	if total > 0 {
		r.PerformanceMetrics.AvgRUPerDocument = round2(totalRU / float64(total))
	}

	if failed > 0 {
		r.Status = "completed_with_errors"
	} else {
		r.Status = "completed"
	}
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
