// Command devserver runs an embedded PocketBase instance that mimics the
// field-sales backend: same routes, same body-level statusCode envelope.
// It exists so the client can be exercised end to end without the real
// backend. Start with: go run ./scripts/devserver serve
package main

import (
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
)

// nextID hands out the numeric record ids the mobile client expects.
var nextID atomic.Int64

func main() {
	nextID.Store(1000)

	app := pocketbase.New()

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		if err := ensureCollections(app); err != nil {
			return err
		}
		if err := seedShops(app); err != nil {
			return err
		}

		se.Router.POST("/api/auth/login", handleLogin)
		se.Router.POST("/api/attendance/submit", func(e *core.RequestEvent) error {
			return handleCreate(app, e, "attendance_logs")
		})
		se.Router.POST("/api/attendance/checkout", func(e *core.RequestEvent) error {
			return handleAck(e)
		})
		se.Router.POST("/api/visits/checkin", func(e *core.RequestEvent) error {
			return handleCreate(app, e, "shop_visits")
		})
		se.Router.POST("/api/visits/checkout", func(e *core.RequestEvent) error {
			return handleAck(e)
		})
		se.Router.GET("/api/shops", func(e *core.RequestEvent) error {
			return handleListShops(app, e)
		})
		se.Router.POST("/api/orders", func(e *core.RequestEvent) error {
			return handleCreate(app, e, "orders")
		})
		se.Router.POST("/api/doa-requests", func(e *core.RequestEvent) error {
			return handleCreate(app, e, "doa_requests")
		})
		se.Router.POST("/api/uploads/images", handleUpload)
		se.Router.POST("/api/location/ping", handleAck)

		return se.Next()
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

// envelope wraps every response the way the production backend does:
// transport 200 plus an application statusCode in the body.
func envelope(e *core.RequestEvent, data any) error {
	return e.JSON(http.StatusOK, map[string]any{
		"statusCode": 200,
		"message":    "ok",
		"data":       data,
	})
}

func handleLogin(e *core.RequestEvent) error {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := e.BindBody(&body); err != nil || body.Username == "" {
		return e.JSON(http.StatusOK, map[string]any{
			"statusCode": 401,
			"message":    "invalid credentials",
		})
	}
	return envelope(e, map[string]any{
		"token":     "dev-token-" + body.Username,
		"userId":    1,
		"branchId":  1,
		"companyId": 1,
	})
}

// handleCreate stores the raw payload in the named collection and returns a
// fresh numeric id, which is all the client reads back.
func handleCreate(app core.App, e *core.RequestEvent, collectionName string) error {
	var body map[string]any
	if err := e.BindBody(&body); err != nil {
		return e.JSON(http.StatusOK, map[string]any{
			"statusCode": 400,
			"message":    "invalid payload",
		})
	}

	collection, err := app.FindCollectionByNameOrId(collectionName)
	if err != nil {
		return err
	}

	id := nextID.Add(1)
	record := core.NewRecord(collection)
	record.Set("numeric_id", id)
	record.Set("payload", body)
	record.Set("received_at", time.Now().Format(time.RFC3339))
	if err := app.Save(record); err != nil {
		return err
	}

	log.Printf("devserver: stored %s record %d", collectionName, id)
	return envelope(e, map[string]any{"id": id})
}

func handleAck(e *core.RequestEvent) error {
	return envelope(e, map[string]any{"ok": true})
}

func handleListShops(app core.App, e *core.RequestEvent) error {
	records, err := app.FindRecordsByFilter("shops", "numeric_id > 0", "numeric_id", 0, 0)
	if err != nil {
		return err
	}

	planned := e.Request.URL.Query().Get("planned") == "true"
	shops := make([]map[string]any, 0, len(records))
	for _, r := range records {
		if planned && !r.GetBool("planned") {
			continue
		}
		shop := map[string]any{
			"id":      r.GetInt("numeric_id"),
			"name":    r.GetString("name"),
			"address": r.GetString("address"),
			"phone":   r.GetString("phone"),
		}
		if r.GetBool("has_location") {
			shop["location"] = map[string]any{
				"latitude":  r.GetFloat("latitude"),
				"longitude": r.GetFloat("longitude"),
			}
		}
		shops = append(shops, shop)
	}
	return envelope(e, map[string]any{"shops": shops})
}

func handleUpload(e *core.RequestEvent) error {
	if err := e.Request.ParseMultipartForm(32 << 20); err != nil {
		return e.JSON(http.StatusOK, map[string]any{
			"statusCode": 400,
			"message":    "bad multipart form",
		})
	}
	count := 0
	if e.Request.MultipartForm != nil {
		count = len(e.Request.MultipartForm.File["images"])
	}
	log.Printf("devserver: received %d images for visit %s", count, e.Request.FormValue("visitId"))
	return envelope(e, map[string]any{"stored": count})
}

func ensureCollections(app core.App) error {
	names := []string{"shops", "attendance_logs", "shop_visits", "orders", "doa_requests"}
	for _, name := range names {
		if _, err := app.FindCollectionByNameOrId(name); err == nil {
			continue
		}
		collection := core.NewBaseCollection(name)
		collection.Fields.Add(
			&core.NumberField{Name: "numeric_id"},
			&core.JSONField{Name: "payload"},
			&core.TextField{Name: "received_at"},
		)
		if name == "shops" {
			collection.Fields.Add(
				&core.TextField{Name: "name", Max: 255},
				&core.TextField{Name: "address", Max: 255},
				&core.TextField{Name: "phone", Max: 64},
				&core.BoolField{Name: "has_location"},
				&core.NumberField{Name: "latitude"},
				&core.NumberField{Name: "longitude"},
				&core.BoolField{Name: "planned"},
			)
		}
		if err := app.Save(collection); err != nil {
			return err
		}
		log.Printf("devserver: created collection %s", name)
	}
	return nil
}

// seedShops inserts a handful of outlets around Bengaluru the first time the
// server starts, two within a 5 km default radius, one far away and one with
// no coordinates at all.
func seedShops(app core.App) error {
	existing, err := app.FindRecordsByFilter("shops", "numeric_id > 0", "", 1, 0)
	if err == nil && len(existing) > 0 {
		return nil
	}

	collection, err := app.FindCollectionByNameOrId("shops")
	if err != nil {
		return err
	}

	seeds := []struct {
		name, address, phone string
		lat, lng             float64
		hasLocation, planned bool
	}{
		{"Lakshmi Stores", "12 MG Road", "+91-98450-11111", 12.9721, 77.5950, true, true},
		{"Ganesh Traders", "4 Brigade Road", "+91-98450-22222", 12.9698, 77.6060, true, false},
		{"Far Horizon Mart", "1 Airport Road", "+91-98450-33333", 13.1989, 77.7068, true, true},
		{"Old Town Kirana", "address on file only", "+91-98450-44444", 0, 0, false, false},
	}
	for _, s := range seeds {
		record := core.NewRecord(collection)
		record.Set("numeric_id", nextID.Add(1))
		record.Set("name", s.name)
		record.Set("address", s.address)
		record.Set("phone", s.phone)
		record.Set("has_location", s.hasLocation)
		record.Set("latitude", s.lat)
		record.Set("longitude", s.lng)
		record.Set("planned", s.planned)
		if err := app.Save(record); err != nil {
			return err
		}
	}
	log.Printf("devserver: seeded %d shops", len(seeds))
	return nil
}
