// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/ecopay/ecopay-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с уже существующим email.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrRequestNotFound возвращается, если заявка на вывоз не найдена.
	ErrRequestNotFound = errors.New("waste request not found")
	// ErrRewardNotFound возвращается, если вознаграждение не найдено.
	ErrRewardNotFound = errors.New("reward not found")
	// ErrRewardInUse возвращается при попытке удалить вознаграждение, на которое ссылаются обмены.
	ErrRewardInUse = errors.New("reward has redemptions and cannot be deleted")
	// ErrRedemptionNotFound возвращается, если обмен не найден.
	ErrRedemptionNotFound = errors.New("redemption not found")
	// ErrLedgerMismatch возвращается, если баланс разошёлся с журналом операций.
	// Такое состояние означает нарушение атомарности записи и фатально для операции.
	ErrLedgerMismatch = errors.New("balance does not match transaction ledger")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
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

// withRetry повторяет транзакцию при дедлоке или сбое сериализации.
// Доменные ошибки (недостаток баллов, недопустимый переход) не ретраятся.
func withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) &&
			(pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected) {
			return retry.RetryableError(err)
		}

		return err
	})
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового пользователя с нулевым балансом.
func (r *PostgresRepository) CreateUser(ctx context.Context, name, email, phone string, passwordHash []byte, role model.Role) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, phone, password_hash, role) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		name, email, phone, passwordHash, string(role),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, email)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

const userColumns = `id, name, email, phone, password_hash, role, points_balance, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	var role string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &role, &u.Points, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	return &u, nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ListUsers возвращает всех пользователей, новые первыми.
func (r *PostgresRepository) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var res []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		res = append(res, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetBalance возвращает текущий баланс баллов пользователя.
func (r *PostgresRepository) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx,
		`SELECT points_balance FROM users WHERE id = $1`, userID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

const requestColumns = `id, user_id, user_name, phone, category, weight_grams, location,
	lat, lng, notes, image_url, status, collector_info, collection_at, points, created_at, updated_at`

func scanWasteRequest(row pgx.Row) (*model.WasteRequest, error) {
	var req model.WasteRequest
	var category, status string
	err := row.Scan(&req.ID, &req.UserID, &req.UserName, &req.Phone, &category,
		&req.WeightGrams, &req.Location, &req.Lat, &req.Lng, &req.Notes, &req.ImageURL,
		&status, &req.CollectorInfo, &req.CollectionAt, &req.Points, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	req.Category = model.WasteCategory(category)
	req.Status = model.RequestStatus(status)
	return &req, nil
}

// CreateWasteRequest сохраняет новую заявку на вывоз в статусе pending.
func (r *PostgresRepository) CreateWasteRequest(ctx context.Context, req *model.WasteRequest) (*model.WasteRequest, error) {
	created, err := scanWasteRequest(r.pool.QueryRow(ctx,
		`INSERT INTO waste_requests
			(id, user_id, user_name, phone, category, weight_grams, location, lat, lng, notes, image_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+requestColumns,
		req.ID, req.UserID, req.UserName, req.Phone, string(req.Category),
		req.WeightGrams, req.Location, req.Lat, req.Lng, req.Notes, req.ImageURL,
	))
	if err != nil {
		return nil, fmt.Errorf("insert waste request: %w", err)
	}
	return created, nil
}

// GetWasteRequestByID возвращает заявку по идентификатору.
func (r *PostgresRepository) GetWasteRequestByID(ctx context.Context, id string) (*model.WasteRequest, error) {
	req, err := scanWasteRequest(r.pool.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM waste_requests WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("get waste request: %w", err)
	}
	return req, nil
}

// ListWasteRequests возвращает заявки, новые первыми. При userID == nil
// возвращаются заявки всех пользователей.
func (r *PostgresRepository) ListWasteRequests(ctx context.Context, userID *int64) ([]model.WasteRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM waste_requests ORDER BY created_at DESC`
	args := []any{}
	if userID != nil {
		query = `SELECT ` + requestColumns + ` FROM waste_requests WHERE user_id = $1 ORDER BY created_at DESC`
		args = append(args, *userID)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select waste requests: %w", err)
	}
	defer rows.Close()

	var res []model.WasteRequest
	for rows.Next() {
		req, err := scanWasteRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan waste request: %w", err)
		}
		res = append(res, *req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ApproveWasteRequest переводит заявку из pending в approved, назначая
// сборщика и время вывоза. Статус проверяется под блокировкой строки.
func (r *PostgresRepository) ApproveWasteRequest(ctx context.Context, id, collectorInfo string, collectionAt time.Time) (*model.WasteRequest, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx,
		`SELECT status FROM waste_requests WHERE id = $1 FOR UPDATE`, id,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("lock waste request: %w", err)
	}

	if !model.RequestStatus(status).CanTransition(model.RequestStatusApproved) {
		return nil, &model.InvalidStateError{
			Entity: "waste request",
			From:   status,
			To:     string(model.RequestStatusApproved),
		}
	}

	req, err := scanWasteRequest(tx.QueryRow(ctx,
		`UPDATE waste_requests
		 SET status = $2, collector_info = $3, collection_at = $4, updated_at = now()
		 WHERE id = $1
		 RETURNING `+requestColumns,
		id, string(model.RequestStatusApproved), collectorInfo, collectionAt,
	))
	if err != nil {
		return nil, fmt.Errorf("update waste request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return req, nil
}

// CompleteWasteRequest переводит заявку из approved в completed и одной
// транзакцией начисляет баллы: запись в журнале и инкремент баланса либо
// происходят вместе, либо не происходят вовсе. Строка пользователя
// блокируется, поэтому операции по одному счёту сериализуются.
func (r *PostgresRepository) CompleteWasteRequest(ctx context.Context, requestID, transactionID string, pts int64, description string) (*model.WasteRequest, error) {
	var result *model.WasteRequest

	err := withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var status string
		var userID int64
		err = tx.QueryRow(ctx,
			`SELECT status, user_id FROM waste_requests WHERE id = $1 FOR UPDATE`, requestID,
		).Scan(&status, &userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrRequestNotFound
			}
			return fmt.Errorf("lock waste request: %w", err)
		}

		if !model.RequestStatus(status).CanTransition(model.RequestStatusCompleted) {
			return &model.InvalidStateError{
				Entity: "waste request",
				From:   status,
				To:     string(model.RequestStatusCompleted),
			}
		}

		req, err := scanWasteRequest(tx.QueryRow(ctx,
			`UPDATE waste_requests
			 SET status = $2, points = $3, updated_at = now()
			 WHERE id = $1
			 RETURNING `+requestColumns,
			requestID, string(model.RequestStatusCompleted), pts,
		))
		if err != nil {
			return fmt.Errorf("update waste request: %w", err)
		}

		// Величина записи журнала всегда положительна. Нулевое начисление
		// (совсем малый вес) завершает заявку без записи журнала и без
		// изменения баланса.
		if pts > 0 {
			// Блокируем строку пользователя: все операции с балансом одного
			// счёта выполняются строго по очереди.
			var dummy int
			err = tx.QueryRow(ctx, `SELECT 1 FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&dummy)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrUserNotFound
				}
				return fmt.Errorf("lock user: %w", err)
			}

			_, err = tx.Exec(ctx,
				`UPDATE users SET points_balance = points_balance + $2 WHERE id = $1`,
				userID, pts,
			)
			if err != nil {
				return fmt.Errorf("credit balance: %w", err)
			}

			_, err = tx.Exec(ctx,
				`INSERT INTO transactions (id, user_id, type, points, description, waste_request_id)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				transactionID, userID, string(model.TransactionCredit), pts, description, requestID,
			)
			if err != nil {
				return fmt.Errorf("insert transaction: %w", err)
			}

			if err := verifyLedger(ctx, tx, userID); err != nil {
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// verifyLedger сверяет баланс пользователя с суммой записей журнала внутри
// той же транзакции. Расхождение означает нарушение атомарности записи,
// операция откатывается.
func verifyLedger(ctx context.Context, tx pgx.Tx, userID int64) error {
	var balance int64
	if err := tx.QueryRow(ctx,
		`SELECT points_balance FROM users WHERE id = $1`, userID,
	).Scan(&balance); err != nil {
		return fmt.Errorf("read balance: %w", err)
	}

	var ledger int64
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(CASE WHEN type = 'credit' THEN points ELSE -points END), 0)
		 FROM transactions WHERE user_id = $1`, userID,
	).Scan(&ledger); err != nil {
		return fmt.Errorf("sum ledger: %w", err)
	}

	if balance != ledger {
		return fmt.Errorf("%w: balance %d, ledger %d (user %d)", ErrLedgerMismatch, balance, ledger, userID)
	}

	return nil
}

// ListTransactions возвращает журнал операций пользователя, новые первыми.
func (r *PostgresRepository) ListTransactions(ctx context.Context, userID int64) ([]model.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, type, points, description, waste_request_id, redemption_id, created_at
		 FROM transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var res []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var txType string
		if err := rows.Scan(&t.ID, &t.UserID, &txType, &t.Points, &t.Description,
			&t.WasteRequestID, &t.RedemptionID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = model.TransactionType(txType)
		res = append(res, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

const rewardColumns = `id, name, cost, description, created_at, updated_at`

func scanReward(row pgx.Row) (*model.Reward, error) {
	var rw model.Reward
	err := row.Scan(&rw.ID, &rw.Name, &rw.Cost, &rw.Description, &rw.CreatedAt, &rw.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rw, nil
}

// CreateReward добавляет позицию в каталог вознаграждений.
func (r *PostgresRepository) CreateReward(ctx context.Context, reward *model.Reward) (*model.Reward, error) {
	created, err := scanReward(r.pool.QueryRow(ctx,
		`INSERT INTO rewards (id, name, cost, description)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+rewardColumns,
		reward.ID, reward.Name, reward.Cost, reward.Description,
	))
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	return created, nil
}

// GetRewardByID возвращает вознаграждение по идентификатору.
func (r *PostgresRepository) GetRewardByID(ctx context.Context, id string) (*model.Reward, error) {
	rw, err := scanReward(r.pool.QueryRow(ctx,
		`SELECT `+rewardColumns+` FROM rewards WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRewardNotFound
		}
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return rw, nil
}

// ListRewards возвращает каталог вознаграждений, новые первыми.
func (r *PostgresRepository) ListRewards(ctx context.Context) ([]model.Reward, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+rewardColumns+` FROM rewards ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("select rewards: %w", err)
	}
	defer rows.Close()

	var res []model.Reward
	for rows.Next() {
		rw, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		res = append(res, *rw)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateReward изменяет позицию каталога. Исторические обмены не трогаются:
// они хранят собственную копию названия и цены.
func (r *PostgresRepository) UpdateReward(ctx context.Context, reward *model.Reward) (*model.Reward, error) {
	updated, err := scanReward(r.pool.QueryRow(ctx,
		`UPDATE rewards SET name = $2, cost = $3, description = $4, updated_at = now()
		 WHERE id = $1
		 RETURNING `+rewardColumns,
		reward.ID, reward.Name, reward.Cost, reward.Description,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRewardNotFound
		}
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return updated, nil
}

// DeleteReward удаляет позицию каталога. Вознаграждение, на которое
// ссылаются обмены, удалить нельзя.
func (r *PostgresRepository) DeleteReward(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM rewards WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrRewardInUse
		}
		return fmt.Errorf("delete reward: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrRewardNotFound
	}
	return nil
}

const redemptionColumns = `id, user_id, reward_id, reward_name, cost, status, requested_at, completed_at`

func scanRedemption(row pgx.Row) (*model.Redemption, error) {
	var red model.Redemption
	var status string
	err := row.Scan(&red.ID, &red.UserID, &red.RewardID, &red.RewardName, &red.Cost,
		&status, &red.RequestedAt, &red.CompletedAt)
	if err != nil {
		return nil, err
	}
	red.Status = model.RedemptionStatus(status)
	return &red, nil
}

// CreateRedemption атомарно проводит обмен баллов: под блокировкой строки
// пользователя проверяется достаточность баланса, списываются баллы,
// пишется дебетовая запись журнала и создаётся обмен в статусе pending.
// Две параллельные попытки обмена не могут обе пройти проверку по
// устаревшему балансу.
func (r *PostgresRepository) CreateRedemption(ctx context.Context, red *model.Redemption, transactionID, description string) (*model.Redemption, error) {
	var result *model.Redemption

	err := withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var balance int64
		err = tx.QueryRow(ctx,
			`SELECT points_balance FROM users WHERE id = $1 FOR UPDATE`, red.UserID,
		).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("lock user: %w", err)
		}

		if balance < red.Cost {
			return &model.InsufficientBalanceError{
				UserID:    red.UserID,
				Available: balance,
				Required:  red.Cost,
			}
		}

		_, err = tx.Exec(ctx,
			`UPDATE users SET points_balance = points_balance - $2 WHERE id = $1`,
			red.UserID, red.Cost,
		)
		if err != nil {
			return fmt.Errorf("debit balance: %w", err)
		}

		created, err := scanRedemption(tx.QueryRow(ctx,
			`INSERT INTO redemptions (id, user_id, reward_id, reward_name, cost)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING `+redemptionColumns,
			red.ID, red.UserID, red.RewardID, red.RewardName, red.Cost,
		))
		if err != nil {
			return fmt.Errorf("insert redemption: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO transactions (id, user_id, type, points, description, redemption_id)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			transactionID, red.UserID, string(model.TransactionDebit), red.Cost, description, red.ID,
		)
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}

		if err := verifyLedger(ctx, tx, red.UserID); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		result = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GetRedemptionByID возвращает обмен по идентификатору.
func (r *PostgresRepository) GetRedemptionByID(ctx context.Context, id string) (*model.Redemption, error) {
	red, err := scanRedemption(r.pool.QueryRow(ctx,
		`SELECT `+redemptionColumns+` FROM redemptions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRedemptionNotFound
		}
		return nil, fmt.Errorf("get redemption: %w", err)
	}
	return red, nil
}

// ListRedemptions возвращает обмены, новые первыми. При userID == nil
// возвращаются обмены всех пользователей.
func (r *PostgresRepository) ListRedemptions(ctx context.Context, userID *int64) ([]model.Redemption, error) {
	query := `SELECT ` + redemptionColumns + ` FROM redemptions ORDER BY requested_at DESC`
	args := []any{}
	if userID != nil {
		query = `SELECT ` + redemptionColumns + ` FROM redemptions WHERE user_id = $1 ORDER BY requested_at DESC`
		args = append(args, *userID)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select redemptions: %w", err)
	}
	defer rows.Close()

	var res []model.Redemption
	for rows.Next() {
		red, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		res = append(res, *red)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// AdvanceRedemption переводит обмен на следующий этап доставки. Допустим
// только непосредственный преемник текущего статуса; completed_at
// устанавливается при переходе в completed.
func (r *PostgresRepository) AdvanceRedemption(ctx context.Context, id string, target model.RedemptionStatus) (*model.Redemption, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx,
		`SELECT status FROM redemptions WHERE id = $1 FOR UPDATE`, id,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRedemptionNotFound
		}
		return nil, fmt.Errorf("lock redemption: %w", err)
	}

	if !model.RedemptionStatus(status).CanTransition(target) {
		return nil, &model.InvalidStateError{
			Entity: "redemption",
			From:   status,
			To:     string(target),
		}
	}

	query := `UPDATE redemptions SET status = $2 WHERE id = $1 RETURNING ` + redemptionColumns
	if target == model.RedemptionStatusCompleted {
		query = `UPDATE redemptions SET status = $2, completed_at = now() WHERE id = $1 RETURNING ` + redemptionColumns
	}

	red, err := scanRedemption(tx.QueryRow(ctx, query, id, string(target)))
	if err != nil {
		return nil, fmt.Errorf("update redemption: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return red, nil
}
