package checkout

import (
	"testing"

	"festreg/src/lib"
	"festreg/src/models"
	"festreg/src/store"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func testCatalog() models.Catalog {
	return models.Catalog{
		{ID: 1, Title: "BANDJAM", Category: "Music", Price: "₹1,500"},
		{ID: 2, Title: "CODE SPRINT", Category: "Tech", Price: "₹299"},
		{ID: 3, Title: "VALORANT SHOWDOWN", Category: "Esports", Price: "₹999"},
		{ID: 4, Title: "OPEN MIC", Category: "Music", Price: "Free"},
	}
}

func newTestMachine(session string) *Machine {
	return NewMachine(session, testCatalog(), store.New(session))
}

func ptrInt(v int) *int { return &v }

func ptrIDs(v []uint) *[]uint { return &v }

func TestAdvanceBlockedWhenNothingSelected(t *testing.T) {
	m := newTestMachine("t1")
	_, err := m.Advance()
	assert.ErrorIs(t, err, ErrNothingSelected)
	assert.Equal(t, STEP_SELECT, m.Step())
}

func TestAdvanceAllowedWithVisitorPassOnly(t *testing.T) {
	m := newTestMachine("t2")
	m.Update(Partial{VisitorPassDays: ptrInt(2)})
	_, err := m.Advance()
	assert.NoError(t, err)
	assert.Equal(t, STEP_FORMS, m.Step())
	assert.Equal(t, 138.00, m.TotalPrice())
	assert.Equal(t, "138.00", FormatPrice(m.TotalPrice()))
}

func TestAdvanceAllowedWithEventOnly(t *testing.T) {
	m := newTestMachine("t3")
	m.Update(Partial{SelectedEventIDs: ptrIDs([]uint{2})})
	_, err := m.Advance()
	assert.NoError(t, err)
	assert.Equal(t, STEP_FORMS, m.Step())
}

func TestBandjamRegistrationScenario(t *testing.T) {
	m := newTestMachine("t4")
	m.Update(Partial{SelectedEventIDs: ptrIDs([]uint{1})})
	_, err := m.Advance()
	assert.NoError(t, err)
	assert.Equal(t, STEP_FORMS, m.Step())

	groups := func() []Group {
		st := m.Snapshot()
		return st.FieldGroups(m.Catalog)
	}()
	assert.Len(t, groups, 1)
	sig := groups[0].Signature()

	leader := leaderFormData()
	leader["teamName"] = "The Resistors"
	m.Update(Partial{
		FormDataBySignature: map[string]map[string]string{sig: leader},
		TeamMembersBySignature: map[string][]map[string]string{
			sig: {memberData(1)},
		},
	})
	m.AttachFile(sig, "idCard", idCard())
	m.AttachMemberFile(sig, 0, idCard())

	// leader + 1 member = 2 against a minimum of 3
	errMap, err := m.Advance()
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Equal(t, STEP_FORMS, m.Step())
	assert.Contains(t, errMap[sig]["teamSize"], "need 1 more member")

	m.Update(Partial{
		TeamMembersBySignature: map[string][]map[string]string{
			sig: {memberData(1), memberData(2)},
		},
	})
	m.AttachMemberFile(sig, 1, idCard())

	errMap, err = m.Advance()
	assert.NoError(t, err)
	assert.Empty(t, errMap)
	assert.Equal(t, STEP_REVIEW, m.Step())

	_, err = m.Advance()
	assert.NoError(t, err)
	assert.Equal(t, STEP_PAYMENT, m.Step())

	_, err = m.Advance()
	assert.ErrorIs(t, err, ErrNoFurtherStep)
}

func TestBackNavigation(t *testing.T) {
	m := newTestMachine("t5")
	m.Update(Partial{VisitorPassDays: ptrInt(1)})
	m.Advance()
	assert.Equal(t, STEP_FORMS, m.Step())
	m.Back()
	assert.Equal(t, STEP_SELECT, m.Step())
	// back on select is the browser's problem, not ours
	m.Back()
	assert.Equal(t, STEP_SELECT, m.Step())
}

func TestSelectionDeduped(t *testing.T) {
	m := newTestMachine("t6")
	m.Update(Partial{SelectedEventIDs: ptrIDs([]uint{2, 1, 2, 1, 3})})
	assert.Equal(t, []uint{2, 1, 3}, m.Snapshot().SelectedEventIDs)
}

func TestVisitorDaysClamped(t *testing.T) {
	m := newTestMachine("t7")
	m.Update(Partial{VisitorPassDays: ptrInt(7)})
	assert.Equal(t, 3, m.Snapshot().VisitorPassDays)
	m.Update(Partial{VisitorPassDays: ptrInt(-1)})
	assert.Equal(t, 0, m.Snapshot().VisitorPassDays)
}

func TestPromoReplacesNeverStacks(t *testing.T) {
	m := newTestMachine("t8")
	m.Update(Partial{SelectedEventIDs: ptrIDs([]uint{1})})
	total := m.TotalPrice()

	m.ApplyPromo(AppliedPromo{Code: "FEST500", DiscountAmount: 500})
	once := m.FinalPrice()
	m.ApplyPromo(AppliedPromo{Code: "FEST500", DiscountAmount: 500})
	twice := m.FinalPrice()

	assert.Equal(t, once, twice)
	assert.Equal(t, FinalPrice(total, 500), twice)
}

func TestFinalPriceFloorsAtZero(t *testing.T) {
	m := newTestMachine("t9")
	m.Update(Partial{SelectedEventIDs: ptrIDs([]uint{4})})
	m.ApplyPromo(AppliedPromo{Code: "BIG", DiscountAmount: 10000})
	assert.Equal(t, 0.00, m.FinalPrice())
}

func TestFieldGroupsMergeSoloEvents(t *testing.T) {
	m := newTestMachine("t10")
	m.Update(Partial{SelectedEventIDs: ptrIDs([]uint{2, 4, 1, 3})})
	st := m.Snapshot()
	groups := st.FieldGroups(m.Catalog)
	// two solo events collapse into one group, two team events stay apart
	assert.Len(t, groups, 3)
	assert.Equal(t, GROUP_SOLO, groups[0].Kind)
	assert.Equal(t, "solo", groups[0].Signature())
	assert.Equal(t, uint(1), groups[1].EventID)
	assert.Equal(t, uint(3), groups[2].EventID)
	assert.NotEqual(t, groups[1].Signature(), groups[2].Signature())
}

func TestFileSnapshotsSafeDuringConcurrentUploads(t *testing.T) {
	m := newTestMachine("t13")
	m.AttachFile("solo", "idCard", idCard())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			m.AttachFile("solo", "idCard", idCard())
			m.AttachMemberFile("solo", i, idCard())
		}
	}()
	for i := 0; i < 200; i++ {
		for _, fields := range m.Files() {
			_ = fields["idCard"]
		}
		for _, members := range m.MemberFiles() {
			_ = members[0]
		}
	}
	<-done

	snapshot := m.Files()
	m.AttachFile("solo", "photo", idCard())
	assert.NotContains(t, snapshot["solo"], "photo")
	assert.Contains(t, m.Files()["solo"], "photo")
}

func TestHydrateRestoresTextStateButNotFiles(t *testing.T) {
	db, mock := redismock.NewClientMock()
	lib.NewRedisClient(db)
	defer lib.NewRedisClient(nil)

	prefix := "checkout:t11:"
	mock.ExpectGet(prefix + store.KEY_STEP).SetVal(`"forms"`)
	mock.ExpectGet(prefix + store.KEY_SELECTED_EVENTS).SetVal(`[1]`)
	mock.ExpectGet(prefix + store.KEY_VISITOR_DAYS).SetVal(`2`)
	mock.ExpectGet(prefix + store.KEY_VISITOR_DETAILS).RedisNil()
	mock.ExpectGet(prefix + store.KEY_FLAGSHIP).RedisNil()
	mock.ExpectGet(prefix + store.KEY_FORM_DATA).SetVal(`{"team_1_bandjam":{"name":"Asha Rao","teamName":"The Resistors"}}`)
	mock.ExpectGet(prefix + store.KEY_TEAM_MEMBERS).RedisNil()
	mock.ExpectGet(prefix + store.KEY_PROMO_INPUT).SetVal(`"FEST500"`)

	m := NewMachine("t11", testCatalog(), store.New("t11"))
	m.Hydrate()

	st := m.Snapshot()
	assert.Equal(t, STEP_FORMS, m.Step())
	assert.Equal(t, []uint{1}, st.SelectedEventIDs)
	assert.Equal(t, 2, st.VisitorPassDays)
	assert.Equal(t, "Asha Rao", st.FormDataBySignature["team_1_bandjam"]["name"])
	assert.Equal(t, "FEST500", st.PromoInput)
	// a reload never restores attachments or an applied promo
	assert.Empty(t, m.Files())
	assert.Empty(t, m.MemberFiles())
	assert.Nil(t, st.AppliedPromo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseClearsEveryKnownKey(t *testing.T) {
	db, mock := redismock.NewClientMock()
	lib.NewRedisClient(db)
	defer lib.NewRedisClient(nil)

	keys := make([]string, 0, len(store.KnownKeys()))
	for _, k := range store.KnownKeys() {
		keys = append(keys, "checkout:t12:"+k)
	}
	mock.ExpectDel(keys...).SetVal(int64(len(keys)))

	m := NewMachine("t12", testCatalog(), store.New("t12"))
	m.Close()
	assert.NoError(t, mock.ExpectationsWereMet())
}
