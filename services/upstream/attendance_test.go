package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
)

const (
	instituteID = "8a6c1a4e-59c1-4c36-9b34-7f2c0c5b7a01"
	classID     = "2f1f7f3e-0a6c-4b8e-9d0b-63c1b5d2e7a2"
	subjectID   = "c2f4b5a6-3f1d-4c2e-8b7a-9e6d5c4b3a20"
	studentID   = "5b2d0c1e-7a6f-4e3d-9c8b-1a2b3c4d5e6f"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, ttl time.Duration) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(core.UpstreamConfig{BaseURL: srv.URL + "/", Token: "s3cret", Timeout: time.Second, CacheTTL: ttl})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestScopePath(t *testing.T) {
	tests := []struct {
		name    string
		scope   attendance.Scope
		want    string
		wantErr bool
	}{
		{name: "institute", scope: attendance.Scope{InstituteID: "i1"}, want: "/institutes/i1/attendance"},
		{name: "class", scope: attendance.Scope{InstituteID: "i1", ClassID: "c1"}, want: "/institutes/i1/classes/c1/attendance"},
		{name: "subject", scope: attendance.Scope{InstituteID: "i1", ClassID: "c1", SubjectID: "s1"}, want: "/institutes/i1/classes/c1/subjects/s1/attendance"},
		{name: "student", scope: attendance.StudentScope("st1"), want: "/students/st1/attendance"},
		{name: "no institute", scope: attendance.Scope{ClassID: "c1"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := scopePath(tt.scope)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueryAttendance_page(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/institutes/"+instituteID+"/classes/"+classID+"/subjects/"+subjectID+"/attendance", r.URL.Path)
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		assert.Equal(t, "2025-01-01", r.URL.Query().Get("startDate"))
		assert.Equal(t, "2025-01-31", r.URL.Query().Get("endDate"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		writeJSON(w, map[string]interface{}{
			"success": true,
			"data": []map[string]string{
				{"id": "a1", "date": "2025-01-02T00:00:00.000Z", "status": "Present", "studentId": studentID, "studentName": "Amani"},
			},
			"pagination": map[string]int{"totalRecords": 11, "page": 2, "limit": 10},
		})
	}, 0)
	repo := NewAttendanceRepository(client, time.UTC)

	records, total, err := repo.QueryAttendance(context.Background(), attendance.QueryFilter{
		Scope:     attendance.Scope{InstituteID: instituteID, ClassID: classID, SubjectID: subjectID},
		StartDate: core.NewDate(2025, time.January, 1),
		EndDate:   core.NewDate(2025, time.January, 31),
		Limit:     10,
		Offset:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	if assert.Len(t, records, 1) {
		assert.Equal(t, attendance.StatusPresent, records[0].Status)
		assert.Equal(t, "2025-01-02", records[0].Date.String())
		assert.Equal(t, "Amani", records[0].StudentName)
	}
}

func TestQueryAttendance_localDay(t *testing.T) {
	wat := time.FixedZone("WAT", 60*60)
	tests := []struct {
		name string
		date string
		loc  *time.Location
		want string
	}{
		{name: "late evening UTC is next day in UTC+1", date: "2025-01-01T23:30:00Z", loc: wat, want: "2025-01-02"},
		{name: "late evening UTC in UTC", date: "2025-01-01T23:30:00Z", loc: time.UTC, want: "2025-01-01"},
		{name: "offset timestamp", date: "2025-01-02T00:15:00+02:00", loc: time.UTC, want: "2025-01-01"},
		{name: "date only", date: "2025-01-01", loc: wat, want: "2025-01-01"},
		{name: "date with trailing junk", date: "2025-01-01 morning", loc: wat, want: "2025-01-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, map[string]interface{}{
					"success":    true,
					"data":       []map[string]string{{"id": "a1", "date": tt.date, "status": "present", "studentId": studentID}},
					"pagination": map[string]int{"totalRecords": 1},
				})
			}, 0)
			repo := NewAttendanceRepository(client, tt.loc)

			records, _, err := repo.QueryAttendance(context.Background(), attendance.QueryFilter{
				Scope:     attendance.Scope{InstituteID: instituteID},
				StartDate: core.NewDate(2025, time.January, 1),
				EndDate:   core.NewDate(2025, time.January, 31),
				Limit:     10,
			})
			require.NoError(t, err)
			if assert.Len(t, records, 1) {
				assert.Equal(t, tt.want, records[0].Date.String())
				day, ok := records[0].Day(tt.loc)
				assert.True(t, ok)
				assert.Equal(t, tt.want, day.String())
			}
		})
	}
}

func TestQueryAttendance_wholeWindow(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		assert.Equal(t, strconv.Itoa(pageSize), r.URL.Query().Get("limit"))

		var data []map[string]string
		switch page {
		case 1:
			data = []map[string]string{
				{"id": "a1", "status": "present", "markedAt": "2025-01-02T08:00:00Z"},
				{"id": "a2", "status": "late", "markedAt": "2025-01-01T08:00:00Z"},
			}
		case 2:
			data = []map[string]string{
				// outside the requested window
				{"id": "a3", "status": "absent", "markedAt": "2024-12-01T08:00:00Z"},
			}
		}
		writeJSON(w, map[string]interface{}{"success": true, "data": data, "pagination": map[string]int{"totalRecords": 3}})
	}, 0)
	repo := NewAttendanceRepository(client, time.UTC)

	records, total, err := repo.QueryAttendance(context.Background(), attendance.QueryFilter{
		Scope:     attendance.StudentScope(studentID),
		StartDate: core.NewDate(2025, time.January, 1),
		EndDate:   core.NewDate(2025, time.January, 30),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
	assert.Equal(t, 2, total)
	if assert.Len(t, records, 2) {
		for _, rec := range records {
			assert.Equal(t, studentID, rec.StudentID)
			assert.True(t, rec.Date.IsZero())
			day, ok := rec.Day(time.UTC)
			assert.True(t, ok)
			assert.Equal(t, "2025-01", day.Format("2006-01"))
		}
	}
}

func TestQueryAttendance_errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				assert.Equal(t, core.ErrNotFound, errors.Cause(err))
			},
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			check: func(t *testing.T, err error) {
				serr, ok := errors.Cause(err).(*StatusError)
				if assert.True(t, ok) {
					assert.Equal(t, http.StatusBadGateway, serr.StatusCode)
					assert.Contains(t, serr.Error(), "boom")
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"success":false,"message":"boom"}`))
			}, 0)
			repo := NewAttendanceRepository(client, time.UTC)

			records, _, err := repo.QueryAttendance(context.Background(), attendance.QueryFilter{
				Scope: attendance.Scope{InstituteID: instituteID},
				Limit: 25,
			})
			require.Error(t, err)
			assert.Nil(t, records)
			tt.check(t, err)
		})
	}
}

func TestSaveAttendance_readOnly(t *testing.T) {
	repo := NewAttendanceRepository(newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected upstream call")
	}, 0), time.UTC)

	_, err := repo.SaveAttendance(context.Background(), attendance.Record{StudentID: studentID})
	assert.Equal(t, attendance.ErrReadOnly, err)
}

func TestClientGet_cache(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		writeJSON(w, map[string]int32{"n": n})
	}, time.Minute)

	now := time.Date(2025, time.January, 2, 8, 0, 0, 0, time.UTC)
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = time.Now })

	get := func() int32 {
		var res struct{ N int32 }
		require.NoError(t, client.Get(context.Background(), "/ping", nil, &res))
		return res.N
	}

	assert.EqualValues(t, 1, get())
	assert.EqualValues(t, 1, get(), "served from cache")

	now = now.Add(2 * time.Minute)
	assert.EqualValues(t, 2, get(), "expired entry refetched")

	client.Flush()
	assert.EqualValues(t, 3, get())
}

func TestClientGet_singleflight(t *testing.T) {
	var (
		calls   int32
		release = make(chan struct{})
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		writeJSON(w, map[string]bool{"ok": true})
	}, 0)

	const n = 5
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			var res struct{ OK bool }
			assert.NoError(t, client.Get(context.Background(), "/slow", nil, &res))
			assert.True(t, res.OK)
		}()
	}
	// let every caller join the in-flight request
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClientGet_evictsExpired(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]bool{"ok": true})
	}, time.Millisecond)

	now := time.Date(2025, time.January, 2, 8, 0, 0, 0, time.UTC)
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = time.Now })

	for i := 0; i < 1000; i++ {
		client.store("/k?n="+strconv.Itoa(i), `{"ok":true}`)
	}
	require.Len(t, client.cache, 1000)

	now = now.Add(time.Second)
	var res struct{ OK bool }
	require.NoError(t, client.Get(context.Background(), "/ping", nil, &res))
	assert.True(t, res.OK)

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Len(t, client.cache, 1)
	_, ok := client.cache["/ping"]
	assert.True(t, ok)
}

func TestClientGet_callerCancel(t *testing.T) {
	var (
		calls   int32
		started = make(chan struct{})
		release = make(chan struct{})
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		writeJSON(w, map[string]bool{"ok": true})
	}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		var res struct{ OK bool }
		first <- client.Get(ctx, "/slow", nil, &res)
	}()
	<-started

	second := make(chan error, 1)
	var res struct{ OK bool }
	go func() {
		second <- client.Get(context.Background(), "/slow", nil, &res)
	}()
	// let the second caller join the in-flight request
	time.Sleep(50 * time.Millisecond)

	cancel()
	err := <-first
	require.Error(t, err)
	assert.Equal(t, context.Canceled, errors.Cause(err))

	close(release)
	require.NoError(t, <-second)
	assert.True(t, res.OK)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}
