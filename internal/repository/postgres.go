// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/akomarov/dealflow-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с уже существующим логином.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrCompanyNotFound возвращается, если компания не найдена.
	ErrCompanyNotFound = errors.New("company not found")
	// ErrDealNotFound возвращается, если сделка не найдена.
	ErrDealNotFound = errors.New("deal not found")
	// ErrDocumentNotFound возвращается, если документ чек-листа не найден.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrDecisionExists возвращается, если по сделке уже зафиксировано решение.
	ErrDecisionExists = errors.New("decision already recorded")
	// ErrDecisionNotFound возвращается, если решение по сделке ещё не принято.
	ErrDecisionNotFound = errors.New("decision not found")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
// Денежные суммы хранятся в центах.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет операцию при сбоях сериализации, дедлоках и сетевых
// ошибках. Прочие ошибки возвращаются сразу.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn()
		if err == nil {
			return nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				return retry.RetryableError(err)
			}
			return err
		}

		if isConnectionError(err) {
			return retry.RetryableError(err)
		}

		return err
	})
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func toCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func fromCents(c int64) float64 {
	return float64(c) / 100
}

func toCentsPtr(v *float64) *int64 {
	if v == nil {
		return nil
	}
	c := toCents(*v)
	return &c
}

func fromCentsPtr(c *int64) *float64 {
	if c == nil {
		return nil
	}
	v := fromCents(*c)
	return &v
}

// CreateUser создаёт нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (login, password_hash) VALUES ($1, $2) RETURNING id`,
		login, passwordHash,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, login)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByLogin возвращает пользователя по логину.
func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, login, password_hash, created_at FROM users WHERE login = $1`,
		login,
	)

	var u model.User
	err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// CreateCompany сохраняет новую компанию.
func (r *PostgresRepository) CreateCompany(ctx context.Context, company model.Company) (*model.Company, error) {
	company.ID = uuid.New()

	err := r.pool.QueryRow(ctx,
		`INSERT INTO companies (id, name, industry, years_in_business, routing_number)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		company.ID, company.Name, company.Industry, company.YearsInBusiness, company.RoutingNumber,
	).Scan(&company.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}

	return &company, nil
}

// GetCompanies возвращает список компаний.
func (r *PostgresRepository) GetCompanies(ctx context.Context) ([]model.Company, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, industry, years_in_business, routing_number, created_at
		 FROM companies
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select companies: %w", err)
	}
	defer rows.Close()

	var res []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Industry, &c.YearsInBusiness, &c.RoutingNumber, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetCompanyByID возвращает компанию по идентификатору.
func (r *PostgresRepository) GetCompanyByID(ctx context.Context, id uuid.UUID) (*model.Company, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, industry, years_in_business, routing_number, created_at
		 FROM companies
		 WHERE id = $1`,
		id,
	)

	var c model.Company
	err := row.Scan(&c.ID, &c.Name, &c.Industry, &c.YearsInBusiness, &c.RoutingNumber, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("get company: %w", err)
	}

	return &c, nil
}

// CreateContact сохраняет контактное лицо компании.
func (r *PostgresRepository) CreateContact(ctx context.Context, contact model.Contact) (*model.Contact, error) {
	contact.ID = uuid.New()

	err := r.pool.QueryRow(ctx,
		`INSERT INTO contacts (id, company_id, name, email, phone)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		contact.ID, contact.CompanyID, contact.Name, contact.Email, contact.Phone,
	).Scan(&contact.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("create contact: %w", err)
	}

	return &contact, nil
}

// GetContactsByCompany возвращает контакты компании.
func (r *PostgresRepository) GetContactsByCompany(ctx context.Context, companyID uuid.UUID) ([]model.Contact, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, company_id, name, email, phone, created_at
		 FROM contacts
		 WHERE company_id = $1
		 ORDER BY created_at`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("select contacts: %w", err)
	}
	defer rows.Close()

	var res []model.Contact
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateDeal сохраняет новую сделку.
func (r *PostgresRepository) CreateDeal(ctx context.Context, deal model.Deal) (*model.Deal, error) {
	deal.ID = uuid.New()

	err := r.pool.QueryRow(ctx,
		`INSERT INTO deals (id, company_id, name, amount_requested, stage,
		                    credit_score, monthly_revenue, average_daily_balance, scorecard_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at, updated_at`,
		deal.ID, deal.CompanyID, deal.Name, toCents(deal.AmountRequested), string(deal.Stage),
		deal.CreditScore, toCentsPtr(deal.MonthlyRevenue), toCentsPtr(deal.AverageDailyBalance),
		string(deal.ScorecardStatus),
	).Scan(&deal.CreatedAt, &deal.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("create deal: %w", err)
	}

	return &deal, nil
}

func scanDeal(row pgx.Row) (*model.Deal, error) {
	var (
		d              model.Deal
		amountCents    int64
		revenueCents   *int64
		balanceCents   *int64
		stage          string
		scorecardState string
	)

	err := row.Scan(&d.ID, &d.CompanyID, &d.Name, &amountCents, &stage,
		&d.CreditScore, &revenueCents, &balanceCents,
		&scorecardState, &d.ScorecardScore, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}

	d.AmountRequested = fromCents(amountCents)
	d.MonthlyRevenue = fromCentsPtr(revenueCents)
	d.AverageDailyBalance = fromCentsPtr(balanceCents)
	d.Stage = model.DealStage(stage)
	d.ScorecardStatus = model.ScorecardStatus(scorecardState)

	return &d, nil
}

const dealColumns = `id, company_id, name, amount_requested, stage,
		credit_score, monthly_revenue, average_daily_balance,
		scorecard_status, scorecard_score, created_at, updated_at`

// GetDeals возвращает все сделки, последние обновлённые первыми.
func (r *PostgresRepository) GetDeals(ctx context.Context) ([]model.Deal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+dealColumns+` FROM deals ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select deals: %w", err)
	}
	defer rows.Close()

	var res []model.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deal: %w", err)
		}
		res = append(res, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetDealByID возвращает сделку по идентификатору.
func (r *PostgresRepository) GetDealByID(ctx context.Context, id uuid.UUID) (*model.Deal, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+dealColumns+` FROM deals WHERE id = $1`,
		id,
	)

	d, err := scanDeal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDealNotFound
		}
		return nil, fmt.Errorf("get deal: %w", err)
	}

	return d, nil
}

// UpdateDealStage переводит сделку на новый этап и фиксирует момент перехода.
func (r *PostgresRepository) UpdateDealStage(ctx context.Context, id uuid.UUID, stage model.DealStage) (*model.Deal, error) {
	var deal *model.Deal

	err := r.withRetry(ctx, func() error {
		row := r.pool.QueryRow(ctx,
			`UPDATE deals SET stage = $2, updated_at = now()
			 WHERE id = $1
			 RETURNING `+dealColumns,
			id, string(stage),
		)

		d, err := scanDeal(row)
		if err != nil {
			return err
		}
		deal = d
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDealNotFound
		}
		return nil, fmt.Errorf("update deal stage: %w", err)
	}

	return deal, nil
}

// CreateOffer сохраняет оффер по сделке.
func (r *PostgresRepository) CreateOffer(ctx context.Context, offer model.Offer) (*model.Offer, error) {
	offer.ID = uuid.New()

	err := r.pool.QueryRow(ctx,
		`INSERT INTO offers (id, deal_id, amount, factor_rate, buy_rate, term_months, frequency,
		                     total_payback, daily_payment, weekly_payment, commission)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at`,
		offer.ID, offer.DealID, toCents(offer.Amount), offer.FactorRate, offer.BuyRate,
		offer.TermMonths, string(offer.Frequency),
		toCents(offer.TotalPayback), toCents(offer.DailyPayment), toCents(offer.WeeklyPayment),
		toCents(offer.Commission),
	).Scan(&offer.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return nil, ErrDealNotFound
		}
		return nil, fmt.Errorf("create offer: %w", err)
	}

	return &offer, nil
}

// GetOffersByDeal возвращает офферы по сделке, свежие первыми.
func (r *PostgresRepository) GetOffersByDeal(ctx context.Context, dealID uuid.UUID) ([]model.Offer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, deal_id, amount, factor_rate, buy_rate, term_months, frequency,
		        total_payback, daily_payment, weekly_payment, commission, created_at
		 FROM offers
		 WHERE deal_id = $1
		 ORDER BY created_at DESC`,
		dealID,
	)
	if err != nil {
		return nil, fmt.Errorf("select offers: %w", err)
	}
	defer rows.Close()

	var res []model.Offer
	for rows.Next() {
		var (
			o            model.Offer
			amountCents  int64
			paybackCents int64
			dailyCents   int64
			weeklyCents  int64
			commCents    int64
			frequency    string
		)
		if err := rows.Scan(&o.ID, &o.DealID, &amountCents, &o.FactorRate, &o.BuyRate,
			&o.TermMonths, &frequency, &paybackCents, &dailyCents, &weeklyCents, &commCents,
			&o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}

		o.Amount = fromCents(amountCents)
		o.TotalPayback = fromCents(paybackCents)
		o.DailyPayment = fromCents(dailyCents)
		o.WeeklyPayment = fromCents(weeklyCents)
		o.Commission = fromCents(commCents)
		o.Frequency = model.PaymentFrequency(frequency)

		res = append(res, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateDocument добавляет документ в чек-лист сделки.
func (r *PostgresRepository) CreateDocument(ctx context.Context, doc model.Document) (*model.Document, error) {
	doc.ID = uuid.New()

	err := r.pool.QueryRow(ctx,
		`INSERT INTO documents (id, deal_id, name, type, uploaded)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		doc.ID, doc.DealID, doc.Name, doc.Type, doc.Uploaded,
	).Scan(&doc.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return nil, ErrDealNotFound
		}
		return nil, fmt.Errorf("create document: %w", err)
	}

	return &doc, nil
}

// GetDocumentsByDeal возвращает чек-лист документов сделки.
func (r *PostgresRepository) GetDocumentsByDeal(ctx context.Context, dealID uuid.UUID) ([]model.Document, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, deal_id, name, type, uploaded, created_at
		 FROM documents
		 WHERE deal_id = $1
		 ORDER BY created_at`,
		dealID,
	)
	if err != nil {
		return nil, fmt.Errorf("select documents: %w", err)
	}
	defer rows.Close()

	var res []model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.DealID, &d.Name, &d.Type, &d.Uploaded, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		res = append(res, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateDocumentUploaded отмечает документ чек-листа как загруженный или нет.
func (r *PostgresRepository) UpdateDocumentUploaded(ctx context.Context, dealID, docID uuid.UUID, uploaded bool) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE documents SET uploaded = $3 WHERE id = $2 AND deal_id = $1`,
		dealID, docID, uploaded,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}

	return nil
}

// CreateDecision фиксирует решение андеррайтера по сделке. Повторное решение
// по той же сделке отклоняется.
func (r *PostgresRepository) CreateDecision(ctx context.Context, decision model.UnderwritingDecision) (*model.UnderwritingDecision, error) {
	decision.ID = uuid.New()

	err := r.pool.QueryRow(ctx,
		`INSERT INTO underwriting_decisions (id, deal_id, status, decline_reason, notes, decided_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING decided_at`,
		decision.ID, decision.DealID, string(decision.Status),
		decision.DeclineReason, decision.Notes, decision.DecidedBy,
	).Scan(&decision.DecidedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return nil, ErrDecisionExists
			case pgerrcode.ForeignKeyViolation:
				return nil, ErrDealNotFound
			}
		}
		return nil, fmt.Errorf("create decision: %w", err)
	}

	return &decision, nil
}

// GetDecisionByDeal возвращает решение андеррайтера по сделке.
func (r *PostgresRepository) GetDecisionByDeal(ctx context.Context, dealID uuid.UUID) (*model.UnderwritingDecision, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, deal_id, status, decline_reason, notes, decided_by, decided_at
		 FROM underwriting_decisions
		 WHERE deal_id = $1`,
		dealID,
	)

	var (
		d      model.UnderwritingDecision
		status string
	)
	err := row.Scan(&d.ID, &d.DealID, &status, &d.DeclineReason, &d.Notes, &d.DecidedBy, &d.DecidedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDecisionNotFound
		}
		return nil, fmt.Errorf("get decision: %w", err)
	}

	d.Status = model.DecisionStatus(status)
	return &d, nil
}

// StageCount содержит количество сделок на этапе.
type StageCount struct {
	Stage model.DealStage
	Count int
}

// CountDealsByStage возвращает количество сделок на каждом этапе.
func (r *PostgresRepository) CountDealsByStage(ctx context.Context) ([]StageCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT stage, COUNT(*) FROM deals GROUP BY stage ORDER BY stage`,
	)
	if err != nil {
		return nil, fmt.Errorf("count deals by stage: %w", err)
	}
	defer rows.Close()

	var res []StageCount
	for rows.Next() {
		var (
			stage string
			count int
		)
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, fmt.Errorf("scan stage count: %w", err)
		}
		res = append(res, StageCount{Stage: model.DealStage(stage), Count: count})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// SumFundedAmount возвращает суммарный объём профинансированных сделок в центах.
func (r *PostgresRepository) SumFundedAmount(ctx context.Context) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_requested), 0) FROM deals WHERE stage = $1`,
		string(model.StageFunded),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum funded amount: %w", err)
	}
	return total, nil
}

// DealForScorecard описывает сделку, ожидающую скоркарту из внешней системы.
type DealForScorecard struct {
	ID     uuid.UUID
	Status model.ScorecardStatus
}

// GetDealsForScorecard возвращает сделки, для которых нужно опросить систему скоринга.
func (r *PostgresRepository) GetDealsForScorecard(ctx context.Context, limit int) ([]DealForScorecard, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, scorecard_status
		 FROM deals
		 WHERE scorecard_status IN ($1, $2)
		 ORDER BY updated_at
		 LIMIT $3`,
		string(model.ScorecardStatusRequested),
		string(model.ScorecardStatusProcessing),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select deals for scorecard: %w", err)
	}
	defer rows.Close()

	var res []DealForScorecard
	for rows.Next() {
		var (
			id     uuid.UUID
			status string
		)
		if err := rows.Scan(&id, &status); err != nil {
			return nil, fmt.Errorf("scan deal: %w", err)
		}

		res = append(res, DealForScorecard{
			ID:     id,
			Status: model.ScorecardStatus(status),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateDealScorecard обновляет статус и значение скоркарты сделки.
func (r *PostgresRepository) UpdateDealScorecard(ctx context.Context, id uuid.UUID, status model.ScorecardStatus, score *float64) error {
	err := r.withRetry(ctx, func() error {
		cmdTag, err := r.pool.Exec(ctx,
			`UPDATE deals SET scorecard_status = $2, scorecard_score = COALESCE($3, scorecard_score)
			 WHERE id = $1`,
			id, string(status), score,
		)
		if err != nil {
			return err
		}
		if cmdTag.RowsAffected() == 0 {
			return ErrDealNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDealNotFound) {
			return ErrDealNotFound
		}
		return fmt.Errorf("update deal scorecard: %w", err)
	}

	return nil
}
