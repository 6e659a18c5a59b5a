package reconcile

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/fiscal/pkg/batch"
	pkgerrors "github.com/agentstation/fiscal/pkg/errors"
	"github.com/agentstation/fiscal/pkg/logging"
	"github.com/agentstation/fiscal/pkg/query"
	"github.com/agentstation/fiscal/pkg/records"
)

// memStore is an in-memory remote list store.
type memStore struct {
	mu      sync.Mutex
	lists   map[string]records.RemoteSet
	nextID  int
	submits int
	status  func(list string, req batch.Request) int
}

func newMemStore() *memStore {
	return &memStore{lists: map[string]records.RemoteSet{}}
}

func (s *memStore) ReadAll(_ context.Context, list string, filter query.Filter) (records.RemoteSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out records.RemoteSet
	for _, rec := range s.lists[list] {
		if filter.Match(rec) {
			out = append(out, records.RemoteRecord{ID: rec.ID, Record: rec.Record.Clone()})
		}
	}
	return out, nil
}

func (s *memStore) SubmitBatch(_ context.Context, list string, reqs []batch.Request) ([]batch.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submits++

	results := make([]batch.Result, len(reqs))
	for i, req := range reqs {
		if s.status != nil {
			if status := s.status(list, req); status != 0 {
				results[i] = batch.Result{Status: status, Message: "refused"}
				continue
			}
		}
		switch req.Method {
		case http.MethodPatch:
			results[i] = s.patch(list, req)
		case http.MethodPost:
			s.nextID++
			id := strconv.Itoa(s.nextID)
			s.lists[list] = append(s.lists[list], records.RemoteRecord{ID: id, Record: req.Fields.Clone()})
			results[i] = batch.Result{Status: http.StatusCreated, ID: id, Fields: req.Fields.Clone()}
		}
	}
	return results, nil
}

func (s *memStore) patch(list string, req batch.Request) batch.Result {
	for _, rec := range s.lists[list] {
		if rec.ID != req.TargetID {
			continue
		}
		for k, v := range req.Fields {
			rec.Record[k] = v
		}
		return batch.Result{Status: http.StatusOK, ID: rec.ID, Fields: rec.Record.Clone()}
	}
	return batch.Result{Status: http.StatusNotFound, Message: "item not found"}
}

func (s *memStore) find(list, field string, value any) *records.RemoteRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.lists[list] {
		if rec.Record[field] == value {
			return &rec
		}
	}
	return nil
}

type memSource map[string]records.SourceSet

func (m memSource) Query(_ context.Context, entity string) (records.SourceSet, error) {
	out := make(records.SourceSet, len(m[entity]))
	for i, r := range m[entity] {
		out[i] = r.Clone()
	}
	return out, nil
}

type countingRecorder struct {
	entities []string
	runs     int
}

func (r *countingRecorder) RecordEntity(_ string, e *EntityResult) {
	r.entities = append(r.entities, e.Name)
}

func (r *countingRecorder) RecordRun(*Result) {
	r.runs++
}

func specs() []EntitySpec {
	return []EntitySpec{
		{
			Name: "Vendor",
			List: "Vendors",
			Key:  records.Key("Vendor ID"),
			Schema: records.NewSchema(
				records.Field{Name: "Vendor ID", Kind: records.String},
				records.Field{Name: "Name", Kind: records.String},
				records.Field{Name: "Status", Kind: records.String},
			),
			Closure: &ClosureSpec{Field: "Status", Value: "Inactive"},
		},
		{
			Name: "Contract",
			List: "Master Blanket POs",
			Key:  records.Key("Title"),
			Schema: records.NewSchema(
				records.Field{Name: "Title", Kind: records.String},
				records.Field{Name: "VendorLookupId", Kind: records.Lookup},
				records.Field{Name: "Dollar Limit", Kind: records.Number},
				records.Field{Name: "Status", Kind: records.String},
			),
			Lookups: []LookupSpec{{Field: "VendorLookupId", Parent: "Vendor", Required: true}},
			Closure: &ClosureSpec{Field: "Status", Value: "Expired"},
		},
		{
			Name: "PurchaseOrder",
			List: "Purchase Orders",
			Key:  records.Key("Title"),
			Schema: records.NewSchema(
				records.Field{Name: "Title", Kind: records.String},
				records.Field{Name: "VendorLookupId", Kind: records.Lookup},
				records.Field{Name: "ContractLookupId", Kind: records.Lookup},
				records.Field{Name: "Status", Kind: records.String},
			),
			Lookups: []LookupSpec{
				{Field: "VendorLookupId", Parent: "Vendor", Required: true},
				{Field: "ContractLookupId", Parent: "Contract"},
			},
			Closure: &ClosureSpec{Field: "Status", Value: "3PCO - Closed"},
		},
	}
}

func source() memSource {
	return memSource{
		"Vendor": {
			{"Vendor ID": "111", "Name": "Acme", "Status": "Active"},
			{"Vendor ID": "222", "Name": "Globex", "Status": "Active"},
		},
		"Contract": {
			{"Title": "P111", "VendorLookupId": "111", "Dollar Limit": 5000, "Status": "Active"},
		},
		"PurchaseOrder": {
			{"Title": "P111:1", "VendorLookupId": "111", "ContractLookupId": "P111", "Status": "3PS - Sent"},
			{"Title": "P222", "VendorLookupId": "222", "ContractLookupId": nil, "Status": "3PS - Sent"},
		},
	}
}

func quiet() context.Context {
	return logging.WithLogger(context.Background(), logging.NewNopLogger())
}

func run(t *testing.T, store *memStore, src memSource, opts ...Option) (*Result, error) {
	t.Helper()
	o, err := New(src, store, opts...)
	require.NoError(t, err)
	return o.Run(quiet(), specs())
}

func TestRunInsertsInDependencyOrder(t *testing.T) {
	store := newMemStore()
	res, err := run(t, store, source())
	require.NoError(t, err)

	require.Len(t, res.Entities, 3)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 2, res.Entity("Vendor").Inserted)
	assert.Equal(t, 1, res.Entity("Contract").Inserted)
	assert.Equal(t, 2, res.Entity("PurchaseOrder").Inserted)
	assert.Equal(t, 5, res.Totals().Inserted)

	acme := store.find("Vendors", "Vendor ID", "111")
	require.NotNil(t, acme)
	contract := store.find("Master Blanket POs", "Title", "P111")
	require.NotNil(t, contract)
	assert.Equal(t, acme.ID, contract.Record["VendorLookupId"], "contract points at the vendor minted this run")
	assert.Equal(t, float64(5000), contract.Record["Dollar Limit"])

	release := store.find("Purchase Orders", "Title", "P111:1")
	require.NotNil(t, release)
	assert.Equal(t, acme.ID, release.Record["VendorLookupId"])
	assert.Equal(t, contract.ID, release.Record["ContractLookupId"])

	openMarket := store.find("Purchase Orders", "Title", "P222")
	require.NotNil(t, openMarket)
	assert.Nil(t, openMarket.Record["ContractLookupId"])

	assert.Equal(t, map[string]string{"111": acme.ID, "222": store.find("Vendors", "Vendor ID", "222").ID}, res.Maps.Get("Vendor").Snapshot())
}

func TestRunIsIdempotent(t *testing.T) {
	store := newMemStore()
	_, err := run(t, store, source())
	require.NoError(t, err)
	submits := store.submits

	res, err := run(t, store, source())
	require.NoError(t, err)
	assert.Equal(t, submits, store.submits, "second run writes nothing")
	for _, e := range res.Entities {
		assert.Zero(t, e.Inserted+e.Updated+e.Closed, e.Name)
	}
	assert.Equal(t, 5, res.Totals().Unchanged)
}

func TestRunUpdatesChangedRecords(t *testing.T) {
	store := newMemStore()
	_, err := run(t, store, source())
	require.NoError(t, err)

	src := source()
	src["PurchaseOrder"][0]["Status"] = "3PPR - Partial Receipt"
	res, err := run(t, store, src)
	require.NoError(t, err)

	po := res.Entity("PurchaseOrder")
	assert.Equal(t, 1, po.Updated)
	assert.Equal(t, 1, po.Unchanged)
	assert.Equal(t, "3PPR - Partial Receipt", store.find("Purchase Orders", "Title", "P111:1").Record["Status"])
}

func TestRunClosesMissingRecords(t *testing.T) {
	store := newMemStore()
	_, err := run(t, store, source())
	require.NoError(t, err)

	src := source()
	src["Vendor"] = src["Vendor"][:1]
	src["PurchaseOrder"] = src["PurchaseOrder"][:1]

	res, err := run(t, store, src)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Entity("Vendor").Closed)
	assert.Equal(t, 1, res.Entity("PurchaseOrder").Closed)

	globex := store.find("Vendors", "Vendor ID", "222")
	require.NotNil(t, globex, "closed records are never deleted")
	assert.Equal(t, "Inactive", globex.Record["Status"])
	assert.Equal(t, "3PCO - Closed", store.find("Purchase Orders", "Title", "P222").Record["Status"])

	submits := store.submits
	res, err = run(t, store, src)
	require.NoError(t, err)
	assert.Equal(t, submits, store.submits, "already closed records are not patched again")
	assert.Equal(t, 1, res.Entity("Vendor").AlreadyClosed)
	assert.Zero(t, res.Entity("Vendor").Closed)
}

func TestRunRejectsOutOfOrderSpecs(t *testing.T) {
	store := newMemStore()
	o, err := New(source(), store)
	require.NoError(t, err)

	s := specs()
	s[0], s[2] = s[2], s[0]
	_, err = o.Run(quiet(), s)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsOrdering(err))
	assert.Zero(t, store.submits)
}

func TestRunRequiredLookupWithEmptyParent(t *testing.T) {
	store := newMemStore()
	src := source()
	src["Vendor"] = nil

	res, err := run(t, store, src)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsOrdering(err))

	var syncErr *pkgerrors.SyncError
	require.True(t, errors.As(err, &syncErr))
	assert.Equal(t, "Contract", syncErr.Entity)
	assert.Equal(t, StageResolve, syncErr.Stage)

	assert.Empty(t, store.lists["Master Blanket POs"], "nothing written for the failing entity")
	assert.Empty(t, store.lists["Purchase Orders"])
	require.Len(t, res.Entities, 2)
}

func TestRunRequiredLookupNeverResolved(t *testing.T) {
	store := newMemStore()
	src := source()
	src["Contract"][0]["VendorLookupId"] = "999"

	_, err := run(t, store, src)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsOrdering(err))
	assert.Contains(t, err.Error(), "none of 1 references")
}

func TestRunOptionalLookupUnresolved(t *testing.T) {
	store := newMemStore()
	src := source()
	src["PurchaseOrder"][0]["ContractLookupId"] = "P999"

	res, err := run(t, store, src)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Entity("PurchaseOrder").Unresolved)

	po := store.find("Purchase Orders", "Title", "P111:1")
	require.NotNil(t, po)
	assert.Nil(t, po.Record["ContractLookupId"])
	assert.Equal(t, "3PS - Sent", po.Record["Status"], "other fields are still written")
}

func TestRunRejectedSubRequestIsCounted(t *testing.T) {
	store := newMemStore()
	store.status = func(list string, req batch.Request) int {
		if list == "Vendors" && req.Fields["Vendor ID"] == "222" {
			return http.StatusBadRequest
		}
		return 0
	}
	src := source()
	src["PurchaseOrder"] = src["PurchaseOrder"][:1]

	res, err := run(t, store, src)
	require.NoError(t, err, "single record rejections do not fail the run")

	vendor := res.Entity("Vendor")
	assert.Equal(t, 1, vendor.Inserted)
	assert.Equal(t, 1, vendor.Failed)
	require.Len(t, vendor.InsertResults.Rejected(), 1)
	assert.True(t, pkgerrors.IsValidationError(vendor.InsertResults.Rejected()[0].Err))
	assert.Equal(t, 1, res.Entity("PurchaseOrder").Inserted)
}

func TestRunTransientFailure(t *testing.T) {
	store := newMemStore()
	store.status = func(list string, req batch.Request) int {
		if list == "Purchase Orders" && req.Fields["Title"] == "P222" {
			return http.StatusServiceUnavailable
		}
		return 0
	}

	res, err := run(t, store, source())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsTransient(err))

	var syncErr *pkgerrors.SyncError
	require.True(t, errors.As(err, &syncErr))
	assert.Equal(t, "PurchaseOrder", syncErr.Entity)

	po := res.Entity("PurchaseOrder")
	require.NotNil(t, po)
	assert.Equal(t, 1, po.Transient)
	assert.Equal(t, 1, po.Inserted, "siblings complete")
	assert.Len(t, store.lists["Vendors"], 2, "earlier entity types stay written")
}

func TestRunDryRun(t *testing.T) {
	store := newMemStore()
	res, err := run(t, store, source(), WithDryRun(true))
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Zero(t, store.submits)
	assert.Equal(t, 2, res.Entity("Vendor").Planned.Inserts)
	assert.Zero(t, res.Entity("Vendor").Inserted)
	assert.NotEmpty(t, res.Entity("Contract").Warnings, "unresolvable parents are reported")
}

func TestRunDuplicateSourceKeys(t *testing.T) {
	store := newMemStore()
	src := source()
	src["Vendor"] = append(src["Vendor"], records.Record{"Vendor ID": "111", "Name": "Acme Again"})

	_, err := run(t, store, src)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsDuplicateKey(err))
	assert.Zero(t, store.submits)

	res, err := run(t, store, src, WithLastWins(true))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Entity("Vendor").Inserted)
	assert.Equal(t, "Acme Again", store.find("Vendors", "Vendor ID", "111").Record["Name"])
}

func TestRunSplitsBatches(t *testing.T) {
	store := newMemStore()
	src := source()
	for i := 0; i < 45; i++ {
		src["Vendor"] = append(src["Vendor"], records.Record{"Vendor ID": strconv.Itoa(1000 + i), "Name": "V", "Status": "Active"})
	}
	res, err := run(t, store, src, WithBatchSize(20), WithConcurrency(2))
	require.NoError(t, err)
	assert.Equal(t, 47, res.Entity("Vendor").Inserted)
	for i, r := range res.Entity("Vendor").InsertResults {
		assert.Equal(t, i+1, r.Seq)
	}
}

func TestRunRecorder(t *testing.T) {
	rec := &countingRecorder{}
	_, err := run(t, newMemStore(), source(), WithRecorder(rec))
	require.NoError(t, err)
	assert.Equal(t, []string{"Vendor", "Contract", "PurchaseOrder"}, rec.entities)
	assert.Equal(t, 1, rec.runs)
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, newMemStore())
	assert.Error(t, err)
	_, err = New(source(), nil)
	assert.Error(t, err)
	_, err = New(source(), newMemStore(), WithBatchSize(0))
	assert.True(t, pkgerrors.IsValidationError(err))
}

func TestEntitySpecValidate(t *testing.T) {
	tests := []struct {
		name string
		spec EntitySpec
	}{
		{"no name", EntitySpec{List: "L", Key: records.Key("A")}},
		{"no list", EntitySpec{Name: "E", Key: records.Key("A")}},
		{"no key", EntitySpec{Name: "E", List: "L"}},
		{"bad lookup", EntitySpec{Name: "E", List: "L", Key: records.Key("A"), Lookups: []LookupSpec{{Field: "X"}}}},
		{"bad closure", EntitySpec{Name: "E", List: "L", Key: records.Key("A"), Closure: &ClosureSpec{}}},
		{"bad filter", EntitySpec{Name: "E", List: "L", Key: records.Key("A"), Filter: query.Where("A", query.Op("~"), 1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, pkgerrors.IsValidationError(tt.spec.Validate()))
		})
	}

	dup := []EntitySpec{specs()[0], specs()[0]}
	assert.Error(t, validateOrder(dup))
	assert.Error(t, validateOrder(nil))
}
