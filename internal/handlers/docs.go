package handlers

import (
	"encoding/json"
	"net/http"
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the F1 Platform API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	paginationParams := []map[string]interface{}{
		{
			"name":        "page",
			"in":          "query",
			"description": "Page number (default: 1)",
			"required":    false,
			"schema":      map[string]interface{}{"type": "integer", "default": 1},
		},
		{
			"name":        "limit",
			"in":          "query",
			"description": "Records per page (default: 100)",
			"required":    false,
			"schema":      map[string]interface{}{"type": "integer", "default": 100},
		},
	}

	yearRangeParams := []map[string]interface{}{
		{
			"name":        "year_from",
			"in":          "query",
			"description": "Lower bound of the season range",
			"required":    false,
			"schema":      map[string]string{"type": "integer"},
		},
		{
			"name":        "year_to",
			"in":          "query",
			"description": "Upper bound of the season range",
			"required":    false,
			"schema":      map[string]string{"type": "integer"},
		},
	}

	standingSchema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"driver_id":      map[string]string{"type": "string"},
			"name":           map[string]string{"type": "string"},
			"wins":           map[string]string{"type": "integer"},
			"podiums":        map[string]string{"type": "integer"},
			"pole_positions": map[string]string{"type": "integer"},
		},
	}

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "F1 Platform API",
			"description": "F1 telemetry and results platform with PostgreSQL storage, driver performance aggregation, and career standings",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "F1 Platform Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/drivers": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "List drivers",
					"description": "Retrieve the driver dimension with pagination",
					"parameters":  paginationParams,
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"data": map[string]interface{}{
												"type": "array",
												"items": map[string]interface{}{
													"type": "object",
													"properties": map[string]interface{}{
														"driver_id":   map[string]string{"type": "integer"},
														"name":        map[string]string{"type": "string"},
														"nationality": map[string]string{"type": "string"},
														"birthdate":   map[string]interface{}{"type": "string", "format": "date", "nullable": true},
														"created_at":  map[string]string{"type": "string", "format": "date-time"},
													},
												},
											},
											"total": map[string]string{"type": "integer"},
											"page":  map[string]string{"type": "integer"},
											"limit": map[string]string{"type": "integer"},
										},
									},
								},
							},
						},
					},
				},
			},
			"/api/drivers/{driver_number}/trend": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Driver position trend",
					"description": "Rolling mean of race position over time for one driver",
					"parameters": []map[string]interface{}{
						{
							"name":     "driver_number",
							"in":       "path",
							"required": true,
							"schema":   map[string]string{"type": "integer"},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"driver_number": map[string]string{"type": "integer"},
											"points": map[string]interface{}{
												"type": "array",
												"items": map[string]interface{}{
													"type": "object",
													"properties": map[string]interface{}{
														"date":         map[string]string{"type": "string", "format": "date-time"},
														"position":     map[string]string{"type": "integer"},
														"rolling_mean": map[string]string{"type": "number"},
													},
												},
											},
										},
									},
								},
							},
						},
					},
				},
			},
			"/api/positions": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "List position samples",
					"description": "Retrieve raw position telemetry with filtering and pagination",
					"parameters": append([]map[string]interface{}{
						{
							"name":        "driver_number",
							"in":          "query",
							"description": "Filter by car number",
							"required":    false,
							"schema":      map[string]string{"type": "integer"},
						},
						{
							"name":        "session_key",
							"in":          "query",
							"description": "Filter by session",
							"required":    false,
							"schema":      map[string]string{"type": "integer"},
						},
						{
							"name":        "meeting_key",
							"in":          "query",
							"description": "Filter by race weekend",
							"required":    false,
							"schema":      map[string]string{"type": "integer"},
						},
						{
							"name":        "session_type",
							"in":          "query",
							"description": "Filter by session type (Race, Qualifying, Sprint, Practice)",
							"required":    false,
							"schema":      map[string]string{"type": "string"},
						},
					}, paginationParams...),
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
						},
					},
				},
			},
			"/api/performance": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Driver performance aggregates",
					"description": "Per-driver aggregates (points, positions, wins, podiums, poles) computed from the analysis snapshot",
					"parameters": append([]map[string]interface{}{
						{
							"name":        "session_type",
							"in":          "query",
							"description": "Session context (default: Race)",
							"required":    false,
							"schema":      map[string]string{"type": "string"},
						},
					}, yearRangeParams...),
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
						},
					},
				},
			},
			"/api/performance/leader": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Current leader",
					"description": "Top driver by wins, then poles, then podiums, over the analysis snapshot",
					"parameters":  yearRangeParams,
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": standingSchema,
								},
							},
						},
						"404": map[string]interface{}{
							"description": "No driver found",
						},
					},
				},
			},
			"/api/performance/refresh": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Rebuild the analysis snapshot",
					"description": "Reloads position facts from the database and recomputes the snapshot",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Snapshot rebuilt",
						},
					},
				},
			},
			"/api/standings": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Career standings",
					"description": "Persisted career standings in leaderboard order",
					"parameters":  paginationParams,
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
						},
					},
				},
			},
			"/api/standings/top": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Top driver from the store",
					"description": "Relational top-driver query over drivers, positions, and sessions",
					"parameters":  yearRangeParams,
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": standingSchema,
								},
							},
						},
						"404": map[string]interface{}{
							"description": "No driver found",
						},
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check database connectivity and snapshot freshness",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "API is healthy",
						},
						"503": map[string]interface{}{
							"description": "Database unreachable",
						},
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
