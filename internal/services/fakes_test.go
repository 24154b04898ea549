package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"remesas/internal/models"
	"remesas/internal/repositories"
)

// memDB backs every fake repository so cross-table effects (user mirror,
// kyc_id link) behave like the SQL versions.
type memDB struct {
	mu       sync.Mutex
	clock    time.Time
	users    map[uuid.UUID]*models.User
	kycs     map[uuid.UUID]*models.KYCVerification
	logs     []*models.PhoneVerificationLog
	sessions map[string]*models.Session
	resets   map[uuid.UUID]*models.PasswordReset
	profiles map[uuid.UUID]*models.ProfileUpdateRequest

	userCreates int
	failSetDoc  error
}

func newMemDB() *memDB {
	return &memDB{
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		users:    map[uuid.UUID]*models.User{},
		kycs:     map[uuid.UUID]*models.KYCVerification{},
		sessions: map[string]*models.Session{},
		resets:   map[uuid.UUID]*models.PasswordReset{},
		profiles: map[uuid.UUID]*models.ProfileUpdateRequest{},
	}
}

// tick returns strictly increasing creation times.
func (m *memDB) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func cloneUser(u *models.User) *models.User {
	c := *u
	return &c
}

func cloneKYC(k *models.KYCVerification) *models.KYCVerification {
	c := *k
	return &c
}

// ---- users

type fakeUserRepo struct{ db *memDB }

func (r fakeUserRepo) Create(_ context.Context, u *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, ex := range r.db.users {
		if ex.Email == u.Email {
			return repositories.ErrDuplicate
		}
	}
	r.db.userCreates++
	u.ID = uuid.New()
	u.CreatedAt = r.db.tick()
	u.UpdatedAt = u.CreatedAt
	if u.KYCStatus == "" {
		u.KYCStatus = models.KYCStatusNone
	}
	r.db.users[u.ID] = cloneUser(u)
	return nil
}

func (r fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if u, ok := r.db.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, nil
}

func (r fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (r fakeUserRepo) List(_ context.Context, limit, offset int) ([]*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var all []*models.User
	for _, u := range r.db.users {
		all = append(all, cloneUser(u))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r fakeUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r fakeUserRepo) MarkVerified(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if u, ok := r.db.users[id]; ok {
		u.Verified = true
	}
	return nil
}

// ---- sessions

type fakeSessionRepo struct{ db *memDB }

func (r fakeSessionRepo) Create(_ context.Context, s *models.Session) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s.ID = uuid.New()
	s.CreatedAt = r.db.tick()
	c := *s
	r.db.sessions[s.Token] = &c
	return nil
}

func (r fakeSessionRepo) GetByToken(_ context.Context, token string) (*models.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if s, ok := r.db.sessions[token]; ok {
		c := *s
		return &c, nil
	}
	return nil, nil
}

func (r fakeSessionRepo) DeleteByToken(_ context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// ---- password resets

type fakeResetRepo struct{ db *memDB }

func (r fakeResetRepo) Upsert(_ context.Context, userID uuid.UUID, hash string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.resets[userID] = &models.PasswordReset{
		ID: uuid.New(), UserID: userID, TokenHash: hash, ExpiresAt: expiresAt, CreatedAt: r.db.tick(),
	}
	return nil
}

func (r fakeResetRepo) GetValidByHash(_ context.Context, hash string, now time.Time) (*models.PasswordReset, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, pr := range r.db.resets {
		if pr.TokenHash == hash && pr.ExpiresAt.After(now) {
			c := *pr
			return &c, nil
		}
	}
	return nil, nil
}

func (r fakeResetRepo) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.resets, userID)
	return nil
}

// ---- kyc

type fakeKYCRepo struct{ db *memDB }

func (r fakeKYCRepo) Create(_ context.Context, k *models.KYCVerification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	k.ID = uuid.New()
	if k.Status == "" {
		k.Status = models.VerificationDraft
	}
	k.CreatedAt = r.db.tick()
	k.UpdatedAt = k.CreatedAt
	r.db.kycs[k.ID] = cloneKYC(k)
	if u, ok := r.db.users[k.UserID]; ok {
		id := k.ID
		u.KYCID = &id
	}
	return nil
}

func (r fakeKYCRepo) GetByID(_ context.Context, id uuid.UUID) (*models.KYCVerification, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if k, ok := r.db.kycs[id]; ok {
		return cloneKYC(k), nil
	}
	return nil, nil
}

func (r fakeKYCRepo) GetLatestByUserID(_ context.Context, userID uuid.UUID) (*models.KYCVerification, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var latest *models.KYCVerification
	for _, k := range r.db.kycs {
		if k.UserID == userID && (latest == nil || k.CreatedAt.After(latest.CreatedAt)) {
			latest = k
		}
	}
	if latest == nil {
		return nil, nil
	}
	return cloneKYC(latest), nil
}

func (r fakeKYCRepo) SaveDraft(_ context.Context, k *models.KYCVerification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cur, ok := r.db.kycs[k.ID]
	if !ok || !editable(cur.Status) {
		return repositories.ErrConflict
	}
	c := cloneKYC(k)
	c.CreatedAt = cur.CreatedAt
	c.SubmittedAt = cur.SubmittedAt
	r.db.kycs[k.ID] = c
	return nil
}

func (r fakeKYCRepo) SetDocument(_ context.Context, id uuid.UUID, doc models.DocumentType, url string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failSetDoc != nil {
		return r.db.failSetDoc
	}
	k, ok := r.db.kycs[id]
	if !ok || !editable(k.Status) {
		return repositories.ErrConflict
	}
	u := url
	switch doc {
	case models.DocumentFront:
		k.DocumentFront = &u
	case models.DocumentBack:
		k.DocumentBack = &u
	case models.Selfie:
		k.Selfie = &u
	case models.SelfieWithDocument:
		k.SelfieWithDocument = &u
	}
	return nil
}

func (r fakeKYCRepo) StoreVerificationCode(_ context.Context, l *models.PhoneVerificationLog) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	k, ok := r.db.kycs[l.KYCID]
	if !ok {
		return 0, repositories.ErrNotFound
	}
	code, exp := l.Code, l.ExpiresAt
	k.PhoneVerificationCode = &code
	k.PhoneVerificationExpires = &exp
	k.PhoneVerificationAttempts++
	l.ID = uuid.New()
	l.CreatedAt = r.db.tick()
	c := *l
	r.db.logs = append(r.db.logs, &c)
	return k.PhoneVerificationAttempts, nil
}

func (r fakeKYCRepo) IncrementAttempts(_ context.Context, id uuid.UUID) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	k, ok := r.db.kycs[id]
	if !ok {
		return 0, repositories.ErrNotFound
	}
	k.PhoneVerificationAttempts++
	return k.PhoneVerificationAttempts, nil
}

func (r fakeKYCRepo) MarkPhoneVerified(_ context.Context, id uuid.UUID, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	k, ok := r.db.kycs[id]
	if !ok || k.PhoneVerified {
		return nil
	}
	k.PhoneVerified = true
	k.PhoneVerifiedAt = &at
	k.PhoneVerificationCode = nil
	k.PhoneVerificationExpires = nil
	for i := len(r.db.logs) - 1; i >= 0; i-- {
		if r.db.logs[i].KYCID == id {
			r.db.logs[i].Verified = true
			r.db.logs[i].VerifiedAt = &at
			break
		}
	}
	return nil
}

func (r fakeKYCRepo) ListPhoneLogs(_ context.Context, kycID uuid.UUID) ([]*models.PhoneVerificationLog, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.PhoneVerificationLog
	for i := len(r.db.logs) - 1; i >= 0; i-- {
		if r.db.logs[i].KYCID == kycID {
			c := *r.db.logs[i]
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r fakeKYCRepo) Submit(_ context.Context, id uuid.UUID, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	k, ok := r.db.kycs[id]
	if !ok || !editable(k.Status) || len(k.MissingDocuments()) > 0 {
		return repositories.ErrConflict
	}
	k.Status = models.VerificationPending
	k.SubmittedAt = &at
	if u, ok := r.db.users[k.UserID]; ok {
		u.KYCStatus = models.KYCStatusPending
		kid := k.ID
		u.KYCID = &kid
	}
	return nil
}

func (r fakeKYCRepo) Review(_ context.Context, d repositories.ReviewDecision) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	k, ok := r.db.kycs[d.KYCID]
	if !ok {
		return repositories.ErrNotFound
	}
	if k.Status != models.VerificationPending {
		return repositories.ErrConflict
	}
	k.Status = d.Status
	reviewer, at := d.ReviewerID, d.At
	k.ReviewedBy = &reviewer
	k.ReviewedAt = &at
	k.RejectionReason = d.Reason
	if d.Notes != nil {
		k.Notes = d.Notes
	}
	if u, ok := r.db.users[k.UserID]; ok {
		u.KYCStatus = models.KYCStatus(d.Status)
		if d.Status == models.VerificationApproved {
			u.KYCVerifiedAt = &at
		}
	}
	return nil
}

func (r fakeKYCRepo) ListPending(_ context.Context) ([]*models.PendingKYC, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.PendingKYC
	for _, k := range r.db.kycs {
		if k.Status != models.VerificationPending {
			continue
		}
		p := &models.PendingKYC{KYCVerification: *k}
		if u, ok := r.db.users[k.UserID]; ok {
			p.UserEmail, p.UserName = u.Email, u.Name
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(*out[j].SubmittedAt) })
	return out, nil
}

// ---- profile requests

type fakeProfileRepo struct{ db *memDB }

func (r fakeProfileRepo) Create(_ context.Context, req *models.ProfileUpdateRequest) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	req.ID = uuid.New()
	req.Status = models.ProfileUpdatePending
	req.CreatedAt = r.db.tick()
	c := *req
	r.db.profiles[req.ID] = &c
	return nil
}

func (r fakeProfileRepo) GetByID(_ context.Context, id uuid.UUID) (*models.ProfileUpdateRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if p, ok := r.db.profiles[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, nil
}

func (r fakeProfileRepo) ListPending(_ context.Context) ([]*models.ProfileUpdateRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.ProfileUpdateRequest
	for _, p := range r.db.profiles {
		if p.Status == models.ProfileUpdatePending {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r fakeProfileRepo) close(id, reviewer uuid.UUID, at time.Time, status models.ProfileUpdateStatus) (*models.ProfileUpdateRequest, error) {
	p, ok := r.db.profiles[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if p.Status != models.ProfileUpdatePending {
		return nil, repositories.ErrConflict
	}
	p.Status = status
	p.ReviewedBy = &reviewer
	p.ReviewedAt = &at
	return p, nil
}

func (r fakeProfileRepo) Approve(_ context.Context, id, reviewer uuid.UUID, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, err := r.close(id, reviewer, at, models.ProfileUpdateApproved)
	if err != nil {
		return err
	}
	u := r.db.users[p.UserID]
	for k, v := range p.Changes {
		switch k {
		case "name":
			u.Name = v
		case "phone":
			u.Phone = v
		case "country":
			u.Country = v
		}
	}
	return nil
}

func (r fakeProfileRepo) Reject(_ context.Context, id, reviewer uuid.UUID, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	_, err := r.close(id, reviewer, at, models.ProfileUpdateRejected)
	return err
}

// ---- outbound adapters

type fakeEmails struct {
	mu      sync.Mutex
	welcome []string
	resets  map[string]string
	result  EmailResult
}

func newFakeEmails() *fakeEmails {
	return &fakeEmails{resets: map[string]string{}, result: EmailResult{Success: true}}
}

func (f *fakeEmails) SendWelcomeEmail(to, _ string) EmailResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.welcome = append(f.welcome, to)
	return f.result
}

func (f *fakeEmails) SendPasswordResetEmail(to, link string) EmailResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets[to] = link
	return f.result
}

type sentCode struct {
	phone, code string
	method      models.VerificationMethod
}

type fakeNotifications struct {
	mu        sync.Mutex
	codes     []sentCode
	approvals []string
	rejects   []string
	failCodes bool
}

func (f *fakeNotifications) SendVerificationCode(_ context.Context, phone, code string, method models.VerificationMethod) SendResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCodes {
		return SendResult{Error: "provider down"}
	}
	f.codes = append(f.codes, sentCode{phone: phone, code: code, method: method})
	return SendResult{Success: true}
}

func (f *fakeNotifications) SendKYCApprovalNotification(_ context.Context, phone, _ string) SendResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approvals = append(f.approvals, phone)
	return SendResult{Success: true}
}

func (f *fakeNotifications) SendKYCRejectionNotification(_ context.Context, phone, _, reason string) SendResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejects = append(f.rejects, phone+"|"+reason)
	return SendResult{Success: true}
}

func (f *fakeNotifications) lastCode() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.codes) == 0 {
		return ""
	}
	return f.codes[len(f.codes)-1].code
}

type fakeReviews struct {
	mu        sync.Mutex
	submitted []uuid.UUID
}

func (f *fakeReviews) KYCSubmitted(_ context.Context, k *models.KYCVerification, _ *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, k.ID)
}

type fakeLimiter struct {
	allow bool
	err   error
}

func (f fakeLimiter) Allow(context.Context, string) (bool, error) { return f.allow, f.err }
