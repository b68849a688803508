package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/HendryAvila/lineage/internal/config"
	"github.com/HendryAvila/lineage/internal/genealogy"
	"github.com/HendryAvila/lineage/internal/store/sqlite"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))
}

func spouseSchema() config.Schema {
	s := config.DefaultSchema()
	s.CurrentSpouse = true
	return s
}

// newTestStore creates a Store backed by a temp directory for isolation.
func newTestStore(t *testing.T, schema config.Schema) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(sqlite.Config{DataDir: t.TempDir()}, schema, nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreate(t *testing.T, s *sqlite.Store, id, sex string) {
	t.Helper()
	if _, err := s.Create(context.Background(), genealogy.Individual{ID: id, Name: id, Sex: sex}); err != nil {
		t.Fatalf("create %s: %v", id, err)
	}
}

func mustGet(t *testing.T, s *sqlite.Store, id string) genealogy.Individual {
	t.Helper()
	ind, err := s.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return ind
}

func newMutator(t *testing.T, s *sqlite.Store, schema config.Schema) *genealogy.Mutator {
	t.Helper()
	m, err := genealogy.NewMutator(s, schema)
	if err != nil {
		t.Fatalf("NewMutator: %v", err)
	}
	return m
}

// ─── New / Initialization ───────────────────────────────────────────────────

func TestNew_InvalidSchema(t *testing.T) {
	schema := config.DefaultSchema()
	schema.SexValues = []string{"M"}
	_, err := sqlite.New(sqlite.Config{DataDir: t.TempDir()}, schema, nil)
	if !errors.Is(err, config.ErrInvalidConfiguration) {
		t.Fatalf("err = %v, want ErrInvalidConfiguration", err)
	}
}

func TestNew_IdempotentReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	schema := spouseSchema()

	s1, err := sqlite.New(sqlite.Config{DataDir: dir}, schema, nil)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	mustCreate(t, s1, "dad", "M")
	mustCreate(t, s1, "kid", "F")
	if err := newMutator(t, s1, schema).SetFather(ctx, "kid", "dad"); err != nil {
		t.Fatalf("SetFather: %v", err)
	}
	s1.Close()

	s2, err := sqlite.New(sqlite.Config{DataDir: dir}, schema, nil)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()

	want := genealogy.Individual{ID: "kid", Name: "kid", Sex: "F", FatherID: "dad"}
	if diff := cmp.Diff(want, mustGet(t, s2, "kid")); diff != "" {
		t.Errorf("reopened record mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_EnablingSpouseAddsColumn(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s1, err := sqlite.New(sqlite.Config{DataDir: dir}, config.DefaultSchema(), nil)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	mustCreate(t, s1, "h", "M")
	mustCreate(t, s1, "w", "F")
	var n int
	if err := s1.DB().QueryRow(`SELECT COUNT(*) FROM pragma_table_info('individuals') WHERE name = 'current_spouse_id'`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("spouse column present with the feature disabled")
	}
	s1.Close()

	schema := spouseSchema()
	s2, err := sqlite.New(sqlite.Config{DataDir: dir}, schema, nil)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()

	if err := newMutator(t, s2, schema).SetSpouse(ctx, "h", "w"); err != nil {
		t.Fatalf("SetSpouse: %v", err)
	}
	if got := mustGet(t, s2, "w").CurrentSpouseID; got != "h" {
		t.Errorf("w spouse = %q, want %q", got, "h")
	}
}

// ─── Records ────────────────────────────────────────────────────────────────

func TestCreate_AssignsID(t *testing.T) {
	s := newTestStore(t, config.DefaultSchema())
	ind, err := s.Create(context.Background(), genealogy.Individual{Name: "Ada", Sex: "F", BirthDate: "1815-12-10"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ind.ID == "" {
		t.Fatal("expected an assigned id")
	}
	want := genealogy.Individual{ID: ind.ID, Name: "Ada", Sex: "F", BirthDate: "1815-12-10"}
	if diff := cmp.Diff(want, mustGet(t, s, ind.ID)); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}
}

func TestCreate_Rejections(t *testing.T) {
	s := newTestStore(t, config.DefaultSchema())
	ctx := context.Background()
	mustCreate(t, s, "x", "M")

	if _, err := s.Create(ctx, genealogy.Individual{ID: "x", Name: "again", Sex: "M"}); err == nil {
		t.Error("expected duplicate id error")
	}
	if _, err := s.Create(ctx, genealogy.Individual{ID: "y", Sex: "X"}); !errors.Is(err, genealogy.ErrInvalidSex) {
		t.Errorf("err = %v, want ErrInvalidSex", err)
	}
	if _, err := s.Create(ctx, genealogy.Individual{ID: "z", Sex: "M", FatherID: "x"}); err == nil {
		t.Error("expected an error for edges on create")
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t, config.DefaultSchema())
	_, err := s.Get(context.Background(), "ghost")
	if !errors.Is(err, genealogy.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListAndFindWhere(t *testing.T) {
	schema := spouseSchema()
	s := newTestStore(t, schema)
	ctx := context.Background()
	m := newMutator(t, s, schema)
	for _, id := range []string{"dad", "c2", "c1"} {
		mustCreate(t, s, id, "M")
	}
	mustCreate(t, s, "mom", "F")
	for _, kid := range []string{"c2", "c1"} {
		if err := m.SetFather(ctx, kid, "dad"); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := idsOf(all); fmt.Sprint(got) != "[c1 c2 dad mom]" {
		t.Errorf("List = %v", got)
	}

	kids, err := s.FindWhere(ctx, genealogy.RoleFather, "dad")
	if err != nil {
		t.Fatalf("FindWhere: %v", err)
	}
	if got := idsOf(kids); fmt.Sprint(got) != "[c1 c2]" {
		t.Errorf("FindWhere = %v", got)
	}

	none, err := s.FindWhere(ctx, genealogy.RoleMother, "")
	if err != nil || len(none) != 0 {
		t.Errorf("FindWhere(empty) = %v, %v", none, err)
	}
}

func TestFindWhere_SpouseDisabled(t *testing.T) {
	s := newTestStore(t, config.DefaultSchema())
	mustCreate(t, s, "x", "M")
	got, err := s.FindWhere(context.Background(), genealogy.RoleSpouse, "x")
	if err != nil || len(got) != 0 {
		t.Errorf("FindWhere(spouse) = %v, %v; want empty", got, err)
	}
}

func TestCustomColumns(t *testing.T) {
	schema := spouseSchema()
	schema.Columns.Sex = "gender"
	schema.Columns.Father = "papa"
	schema.Columns.Mother = "mama"
	schema.Columns.CurrentSpouse = "partner"
	schema.SexValues = []string{"male", "female"}
	s := newTestStore(t, schema)
	ctx := context.Background()
	m := newMutator(t, s, schema)

	mustCreate(t, s, "p", "male")
	mustCreate(t, s, "q", "female")
	mustCreate(t, s, "kid", "female")
	if err := m.SetFather(ctx, "kid", "p"); err != nil {
		t.Fatalf("SetFather: %v", err)
	}
	if err := m.SetMother(ctx, "kid", "q"); err != nil {
		t.Fatalf("SetMother: %v", err)
	}
	if err := m.SetSpouse(ctx, "p", "q"); err != nil {
		t.Fatalf("SetSpouse: %v", err)
	}

	var gender, papa, mama string
	row := s.DB().QueryRow(`SELECT gender, papa, mama FROM individuals WHERE id = 'kid'`)
	if err := row.Scan(&gender, &papa, &mama); err != nil {
		t.Fatalf("raw select: %v", err)
	}
	if gender != "female" || papa != "p" || mama != "q" {
		t.Errorf("raw row = %q %q %q", gender, papa, mama)
	}
	var partner string
	if err := s.DB().QueryRow(`SELECT partner FROM individuals WHERE id = 'q'`).Scan(&partner); err != nil {
		t.Fatal(err)
	}
	if partner != "p" {
		t.Errorf("partner = %q, want %q", partner, "p")
	}

	if err := m.SetMother(ctx, "q", "kid"); !errors.Is(err, genealogy.ErrCycle) {
		t.Errorf("err = %v, want ErrCycle", err)
	}
	if err := m.SetFather(ctx, "q", "kid"); !errors.Is(err, genealogy.ErrSexMismatch) {
		t.Errorf("err = %v, want ErrSexMismatch", err)
	}
}

// ─── Mutations ──────────────────────────────────────────────────────────────

func TestMutator_Rules(t *testing.T) {
	schema := spouseSchema()
	s := newTestStore(t, schema)
	ctx := context.Background()
	m := newMutator(t, s, schema)
	mustCreate(t, s, "gf", "M")
	mustCreate(t, s, "dad", "M")
	mustCreate(t, s, "kid", "M")
	mustCreate(t, s, "mom", "F")
	if err := m.SetFather(ctx, "dad", "gf"); err != nil {
		t.Fatal(err)
	}
	if err := m.SetFather(ctx, "kid", "dad"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"self", m.SetFather(ctx, "kid", "kid"), genealogy.ErrSelfReference},
		{"cycle", m.SetFather(ctx, "gf", "kid"), genealogy.ErrCycle},
		{"sex", m.SetMother(ctx, "kid", "dad"), genealogy.ErrSexMismatch},
		{"unknown", m.SetFather(ctx, "kid", "ghost"), genealogy.ErrNotFound},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, tt.err, tt.want)
		}
	}
	if got := mustGet(t, s, "gf").FatherID; got != "" {
		t.Errorf("gf FatherID = %q after rejected cycle", got)
	}

	if err := m.SetSpouse(ctx, "gf", "kid"); !errors.Is(err, genealogy.ErrIncest) {
		t.Errorf("SetSpouse(gf, kid) err = %v, want ErrIncest", err)
	}

	anc, err := genealogy.Collect(genealogy.NewGraph(s).Ancestors(ctx, "kid"))
	if err != nil {
		t.Fatal(err)
	}
	if got := idsOf(anc); fmt.Sprint(got) != "[dad gf]" {
		t.Errorf("Ancestors = %v", got)
	}
}

func TestSetSpouse_ExecFailureLeavesBothSides(t *testing.T) {
	schema := spouseSchema()
	s := newTestStore(t, schema)
	ctx := context.Background()
	m := newMutator(t, s, schema)
	mustCreate(t, s, "h", "M")
	mustCreate(t, s, "w", "F")

	boom := errors.New("disk full")
	s.FailExec("UPDATE individuals", 2, boom)

	err := m.SetSpouse(ctx, "h", "w")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if got := genealogy.Code(err); got != genealogy.CodeInternal {
		t.Errorf("Code = %q, want %q", got, genealogy.CodeInternal)
	}
	if got := mustGet(t, s, "h").CurrentSpouseID; got != "" {
		t.Errorf("h spouse = %q after rollback", got)
	}
	if got := mustGet(t, s, "w").CurrentSpouseID; got != "" {
		t.Errorf("w spouse = %q after rollback", got)
	}
}

func TestSetSpouse_CommitFailureLeavesBothSides(t *testing.T) {
	schema := spouseSchema()
	s := newTestStore(t, schema)
	ctx := context.Background()
	m := newMutator(t, s, schema)
	mustCreate(t, s, "h", "M")
	mustCreate(t, s, "w", "F")
	mustCreate(t, s, "w2", "F")
	if err := m.SetSpouse(ctx, "h", "w"); err != nil {
		t.Fatal(err)
	}

	s.FailCommit(errors.New("commit refused"))
	if err := m.SetSpouse(ctx, "h", "w2"); err == nil {
		t.Fatal("expected commit failure")
	}
	if got := mustGet(t, s, "h").CurrentSpouseID; got != "w" {
		t.Errorf("h spouse = %q, want %q", got, "w")
	}
	if got := mustGet(t, s, "w").CurrentSpouseID; got != "h" {
		t.Errorf("w spouse = %q, want %q", got, "h")
	}
	if got := mustGet(t, s, "w2").CurrentSpouseID; got != "" {
		t.Errorf("w2 spouse = %q, want empty", got)
	}
}

func TestSetSpouse_Concurrent(t *testing.T) {
	schema := spouseSchema()
	s := newTestStore(t, schema)
	ctx := context.Background()
	m := newMutator(t, s, schema)

	const n = 4
	for i := 0; i < n; i++ {
		mustCreate(t, s, fmt.Sprintf("h%d", i), "M")
		mustCreate(t, s, fmt.Sprintf("w%d", i), "F")
	}

	var wg sync.WaitGroup
	errs := make(chan error, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			wg.Add(1)
			go func(h, w string) {
				defer wg.Done()
				if err := m.SetSpouse(ctx, h, w); err != nil {
					errs <- err
				}
			}(fmt.Sprintf("h%d", i), fmt.Sprintf("w%d", j))
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("SetSpouse: %v", err)
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, ind := range all {
		if ind.CurrentSpouseID == "" {
			continue
		}
		if back := mustGet(t, s, ind.CurrentSpouseID).CurrentSpouseID; back != ind.ID {
			t.Errorf("%s -> %s but %s -> %q", ind.ID, ind.CurrentSpouseID, ind.CurrentSpouseID, back)
		}
	}
}

// ─── Deletion ───────────────────────────────────────────────────────────────

func TestDelete_NullifiesDependents(t *testing.T) {
	schema := spouseSchema()
	s := newTestStore(t, schema)
	ctx := context.Background()
	m := newMutator(t, s, schema)
	mustCreate(t, s, "dad", "M")
	mustCreate(t, s, "mom", "F")
	mustCreate(t, s, "kid", "F")
	if err := m.SetFather(ctx, "kid", "dad"); err != nil {
		t.Fatal(err)
	}
	if err := m.SetMother(ctx, "kid", "mom"); err != nil {
		t.Fatal(err)
	}
	if err := m.SetSpouse(ctx, "dad", "mom"); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(ctx, "dad"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "dad"); !errors.Is(err, genealogy.ErrNotFound) {
		t.Errorf("Get(dad) err = %v, want ErrNotFound", err)
	}
	kid := mustGet(t, s, "kid")
	if kid.FatherID != "" || kid.MotherID != "mom" {
		t.Errorf("kid = %+v", kid)
	}
	if got := mustGet(t, s, "mom").CurrentSpouseID; got != "" {
		t.Errorf("mom spouse = %q, want empty", got)
	}
}

func TestDelete_SpouseDisabledAfterPairing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	schema := spouseSchema()

	s1, err := sqlite.New(sqlite.Config{DataDir: dir}, schema, nil)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	mustCreate(t, s1, "h", "M")
	mustCreate(t, s1, "w", "F")
	if err := newMutator(t, s1, schema).SetSpouse(ctx, "h", "w"); err != nil {
		t.Fatalf("SetSpouse: %v", err)
	}
	s1.Close()

	s2, err := sqlite.New(sqlite.Config{DataDir: dir}, config.DefaultSchema(), nil)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()

	if err := s2.Delete(ctx, "h"); err != nil {
		t.Fatalf("Delete(h): %v", err)
	}
	var spouse sql.NullString
	if err := s2.DB().QueryRow(`SELECT current_spouse_id FROM individuals WHERE id = 'w'`).Scan(&spouse); err != nil {
		t.Fatal(err)
	}
	if spouse.Valid {
		t.Errorf("w current_spouse_id = %q, want NULL", spouse.String)
	}
	if got := mustGet(t, s2, "w"); got.CurrentSpouseID != "" {
		t.Errorf("w = %+v", got)
	}
}

func TestDelete_NotFound(t *testing.T) {
	s := newTestStore(t, config.DefaultSchema())
	err := s.Delete(context.Background(), "ghost")
	if !errors.Is(err, genealogy.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if got := genealogy.Code(err); got != genealogy.CodeNotFound {
		t.Errorf("Code = %q, want %q", got, genealogy.CodeNotFound)
	}
}

func TestDelete_PropagationFailureKeepsRecord(t *testing.T) {
	schema := spouseSchema()
	s := newTestStore(t, schema)
	ctx := context.Background()
	m := newMutator(t, s, schema)
	mustCreate(t, s, "dad", "M")
	mustCreate(t, s, "kid", "M")
	if err := m.SetFather(ctx, "kid", "dad"); err != nil {
		t.Fatal(err)
	}

	s.FailExec("UPDATE individuals", 1, errors.New("io error"))
	err := s.Delete(ctx, "dad")
	if !errors.Is(err, genealogy.ErrPropagation) {
		t.Fatalf("err = %v, want ErrPropagation", err)
	}
	mustGet(t, s, "dad")
	if got := mustGet(t, s, "kid").FatherID; got != "dad" {
		t.Errorf("kid FatherID = %q, want %q", got, "dad")
	}
}

func TestRemove_ForeignKeyGuard(t *testing.T) {
	schema := spouseSchema()
	s := newTestStore(t, schema)
	ctx := context.Background()
	m := newMutator(t, s, schema)
	mustCreate(t, s, "dad", "M")
	mustCreate(t, s, "kid", "M")
	if err := m.SetFather(ctx, "kid", "dad"); err != nil {
		t.Fatal(err)
	}

	err := s.RunInTx(ctx, func(w genealogy.Writer) error {
		return w.Remove(ctx, "dad")
	})
	if !errors.Is(err, genealogy.ErrPropagation) {
		t.Fatalf("err = %v, want ErrPropagation", err)
	}
	mustGet(t, s, "dad")
}

func idsOf(inds []genealogy.Individual) []string {
	out := make([]string, 0, len(inds))
	for _, ind := range inds {
		out = append(out, ind.ID)
	}
	return out
}
