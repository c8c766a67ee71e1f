package memory

import (
	"time"

	"github.com/hopebridge/donor-portal/internal/rbac"
	"github.com/hopebridge/donor-portal/internal/store"
)

// SeedUser pairs an account with its role assignments.
type SeedUser struct {
	User  store.User
	Roles []string
}

// Seed is the initial data set of a Store.
type Seed struct {
	Users          []SeedUser
	Gifts          []store.Gift
	RecurringGifts []store.RecurringGift
	Content        []store.ContentItem
	Activity       []store.ActivityEvent
	Overrides      []store.DashboardOverride
	ActiveIdentity string
}

// Seed identities.
const (
	SeedDonorID   = "usr_donor_grace"
	SeedPartnerID = "usr_partner_samuel"
	SeedAdminID   = "usr_admin_ada"
	SeedEditorID  = "usr_editor_carla"
	SeedAnalystID = "usr_analyst_omar"
)

// DefaultSeed returns the dev-bypass data set: two donors with disjoint
// giving history, an admin, a content manager and an analyst.
func DefaultSeed() Seed {
	base := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	return Seed{
		ActiveIdentity: SeedDonorID,
		Users: []SeedUser{
			{User: store.User{ID: SeedDonorID, Email: "grace@example.org", Name: "Grace Mensah", IsActive: true, CreatedAt: base.Add(-400 * day)}},
			{User: store.User{ID: SeedPartnerID, Email: "samuel@example.org", Name: "Samuel Okafor", IsActive: true, CreatedAt: base.Add(-300 * day)}},
			{User: store.User{ID: SeedAdminID, Email: "ada@example.org", Name: "Ada Lovelace", IsAdmin: true, IsActive: true, CreatedAt: base.Add(-900 * day)}},
			{User: store.User{ID: SeedEditorID, Email: "carla@example.org", Name: "Carla Reyes", IsActive: true, CreatedAt: base.Add(-200 * day)}, Roles: []string{string(rbac.RoleContentManager), string(rbac.RoleLMSManager)}},
			{User: store.User{ID: SeedAnalystID, Email: "omar@example.org", Name: "Omar Haddad", IsActive: true, CreatedAt: base.Add(-100 * day)}, Roles: []string{string(rbac.RoleAnalyst)}},
		},
		Gifts: []store.Gift{
			{ID: "gift_1001", UserID: SeedDonorID, AmountCents: 5000, Currency: "USD", Fund: "general", Method: "card", GivenAt: base},
			{ID: "gift_1002", UserID: SeedDonorID, AmountCents: 2500, Currency: "USD", Fund: "education", Method: "card", GivenAt: base.Add(30 * day)},
			{ID: "gift_1003", UserID: SeedDonorID, AmountCents: 10000, Currency: "USD", Fund: "relief", Method: "ach", GivenAt: base.Add(60 * day)},
			{ID: "gift_2001", UserID: SeedPartnerID, AmountCents: 100000, Currency: "USD", Fund: "general", Method: "ach", GivenAt: base.Add(10 * day)},
			{ID: "gift_2002", UserID: SeedPartnerID, AmountCents: 75000, Currency: "USD", Fund: "missions", Method: "check", GivenAt: base.Add(45 * day)},
		},
		RecurringGifts: []store.RecurringGift{
			{ID: "rec_1001", UserID: SeedDonorID, AmountCents: 2500, Currency: "USD", Fund: "general", Interval: "monthly", Status: store.RecurringActive, NextChargeAt: base.Add(90 * day), CreatedAt: base.Add(-60 * day)},
			{ID: "rec_1002", UserID: SeedDonorID, AmountCents: 1000, Currency: "USD", Fund: "education", Interval: "weekly", Status: store.RecurringPaused, NextChargeAt: base.Add(95 * day), CreatedAt: base.Add(-20 * day)},
			{ID: "rec_2001", UserID: SeedPartnerID, AmountCents: 50000, Currency: "USD", Fund: "missions", Interval: "quarterly", Status: store.RecurringActive, NextChargeAt: base.Add(120 * day), CreatedAt: base.Add(-180 * day)},
		},
		Content: []store.ContentItem{
			{ID: "cnt_course_intro", Kind: store.ContentCourse, Title: "Foundations of Generosity", Summary: "A six-part introductory course.", URL: "/courses/foundations", Published: true, SortOrder: 1, UpdatedBy: SeedEditorID, UpdatedAt: base},
			{ID: "cnt_course_lead", Kind: store.ContentCourse, Title: "Partner Leadership", Summary: "For church and ministry partners.", URL: "/courses/leadership", Published: true, SortOrder: 2, UpdatedBy: SeedEditorID, UpdatedAt: base},
			{ID: "cnt_course_draft", Kind: store.ContentCourse, Title: "Stewardship Deep Dive", Summary: "Draft course.", URL: "/courses/stewardship", Published: false, SortOrder: 3, UpdatedBy: SeedEditorID, UpdatedAt: base},
			{ID: "cnt_article_report", Kind: store.ContentArticle, Title: "Annual Impact Report", Summary: "Where your gifts went this year.", URL: "/articles/impact", Published: true, SortOrder: 1, UpdatedBy: SeedEditorID, UpdatedAt: base},
			{ID: "cnt_video_field", Kind: store.ContentVideo, Title: "Field Update: Relief Work", Summary: "Ten-minute update from the field.", URL: "/videos/field-update", Published: true, SortOrder: 1, UpdatedBy: SeedEditorID, UpdatedAt: base},
		},
		Activity: []store.ActivityEvent{
			{ID: "act_1001", UserID: SeedDonorID, Kind: "gift", Message: "Gift of $100.00 to relief received", OccurredAt: base.Add(60 * day)},
			{ID: "act_1002", UserID: SeedDonorID, Kind: "course", Message: "Completed lesson 2 of Foundations of Generosity", OccurredAt: base.Add(61 * day)},
			{ID: "act_2001", UserID: SeedPartnerID, Kind: "gift", Message: "Gift of $750.00 to missions received", OccurredAt: base.Add(45 * day)},
		},
		Overrides: []store.DashboardOverride{
			{UserID: SeedPartnerID, DashboardRole: store.DashboardPartner, UpdatedBy: SeedAdminID, UpdatedAt: base},
		},
	}
}
