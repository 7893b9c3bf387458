package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/model"
)

const blogColumns = `b.id, b.title, b.content, b.excerpt, b.tags, b.author_id, b.published,
	b.featured_image, b.read_time, b.likes, b.created_at, b.updated_at`

const authorColumns = `u.id AS a_id, u.email AS a_email, u.first_name AS a_first_name,
	u.last_name AS a_last_name, u.profile_image_url AS a_profile_image_url, u.bio AS a_bio,
	u.created_at AS a_created_at, u.updated_at AS a_updated_at`

const blogWithAuthorFrom = `FROM blogs b LEFT JOIN users u ON u.id = b.author_id`

type blogRecord struct {
	ID            int64          `db:"id"`
	Title         string         `db:"title"`
	Content       string         `db:"content"`
	Excerpt       *string        `db:"excerpt"`
	Tags          pq.StringArray `db:"tags"`
	AuthorID      string         `db:"author_id"`
	Published     bool           `db:"published"`
	FeaturedImage *string        `db:"featured_image"`
	ReadTime      int            `db:"read_time"`
	Likes         int            `db:"likes"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (r blogRecord) toModel() model.Blog {
	tags := []string(r.Tags)
	if tags == nil {
		tags = []string{}
	}
	return model.Blog{
		ID:            r.ID,
		Title:         r.Title,
		Content:       r.Content,
		Excerpt:       r.Excerpt,
		Tags:          tags,
		AuthorID:      r.AuthorID,
		Published:     r.Published,
		FeaturedImage: r.FeaturedImage,
		ReadTime:      r.ReadTime,
		Likes:         r.Likes,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// blogWithAuthorRecord adds the nullable author side of the LEFT JOIN.
type blogWithAuthorRecord struct {
	blogRecord
	AID              sql.NullString `db:"a_id"`
	AEmail           *string        `db:"a_email"`
	AFirstName       *string        `db:"a_first_name"`
	ALastName        *string        `db:"a_last_name"`
	AProfileImageURL *string        `db:"a_profile_image_url"`
	ABio             *string        `db:"a_bio"`
	ACreatedAt       sql.NullTime   `db:"a_created_at"`
	AUpdatedAt       sql.NullTime   `db:"a_updated_at"`
}

func (r blogWithAuthorRecord) toModel(now time.Time) model.BlogWithAuthor {
	author := model.AnonymousAuthor(now)
	if r.AID.Valid {
		author = model.User{
			ID:              r.AID.String,
			Email:           r.AEmail,
			FirstName:       r.AFirstName,
			LastName:        r.ALastName,
			ProfileImageURL: r.AProfileImageURL,
			Bio:             r.ABio,
			CreatedAt:       r.ACreatedAt.Time,
			UpdatedAt:       r.AUpdatedAt.Time,
		}
	}
	return model.BlogWithAuthor{Blog: r.blogRecord.toModel(), Author: author}
}

func notFoundBlog(id int64) error {
	return apperror.NotFound("blog", strconv.FormatInt(id, 10))
}

// ListBlogs returns one page of published blogs, newest first, filtered by
// tag membership and a case-insensitive search over title and content.
func (db *DB) ListBlogs(ctx context.Context, q model.BlogQuery) ([]model.BlogWithAuthor, error) {
	page := q.Page.Normalize()

	where := []string{"b.published"}
	var args []any
	if q.Tag != "" {
		where = append(where, "? = ANY(b.tags)")
		args = append(args, q.Tag)
	}
	if q.Search != "" {
		pattern := "%" + escapeLike(q.Search) + "%"
		where = append(where, `(b.title ILIKE ? ESCAPE '\' OR b.content ILIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	args = append(args, page.Limit, page.Offset())

	query := db.conn.Rebind(`SELECT ` + blogColumns + `, ` + authorColumns + ` ` + blogWithAuthorFrom +
		` WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY b.created_at DESC, b.id DESC LIMIT ? OFFSET ?`)

	blogs, err := db.selectBlogsWithAuthor(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing blogs: %w", err)
	}
	return blogs, nil
}

// ListUserBlogs returns one page of an author's blogs, drafts included.
func (db *DB) ListUserBlogs(ctx context.Context, userID string, p model.Page) ([]model.BlogWithAuthor, error) {
	page := p.Normalize()

	blogs, err := db.selectBlogsWithAuthor(ctx,
		`SELECT `+blogColumns+`, `+authorColumns+` `+blogWithAuthorFrom+`
		 WHERE b.author_id = $1
		 ORDER BY b.created_at DESC, b.id DESC LIMIT $2 OFFSET $3`,
		userID, page.Limit, page.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing blogs for user %s: %w", userID, err)
	}
	return blogs, nil
}

func (db *DB) selectBlogsWithAuthor(ctx context.Context, query string, args ...any) ([]model.BlogWithAuthor, error) {
	var records []blogWithAuthorRecord
	if err := db.conn.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	blogs := make([]model.BlogWithAuthor, 0, len(records))
	for _, r := range records {
		blogs = append(blogs, r.toModel(now))
	}
	return blogs, nil
}

func (db *DB) GetBlog(ctx context.Context, id int64) (*model.BlogWithAuthor, error) {
	var r blogWithAuthorRecord
	err := db.conn.GetContext(ctx, &r,
		`SELECT `+blogColumns+`, `+authorColumns+` `+blogWithAuthorFrom+` WHERE b.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundBlog(id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting blog %d: %w", id, err)
	}
	b := r.toModel(time.Now().UTC())
	return &b, nil
}

func (db *DB) CreateBlog(ctx context.Context, authorID string, in model.InsertBlog) (*model.Blog, error) {
	readTime := model.DefaultReadTime
	if in.ReadTime != nil {
		readTime = *in.ReadTime
	}
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	var r blogRecord
	err := db.conn.GetContext(ctx, &r, `
		INSERT INTO blogs (title, content, excerpt, tags, author_id, published, featured_image, read_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, title, content, excerpt, tags, author_id, published,
			featured_image, read_time, likes, created_at, updated_at`,
		in.Title,
		in.Content,
		in.Excerpt,
		pq.Array(tags),
		authorID,
		in.Published != nil && *in.Published,
		in.FeaturedImage,
		readTime,
	)
	if err != nil {
		if pqCode(err) == codeForeignKeyViolation {
			return nil, apperror.NotFound("user", authorID)
		}
		return nil, fmt.Errorf("postgres: creating blog: %w", err)
	}
	b := r.toModel()
	return &b, nil
}

func (db *DB) UpdateBlog(ctx context.Context, id int64, u model.UpdateBlog) (*model.Blog, error) {
	sets := []string{"updated_at = NOW()"}
	var args []any
	set := func(column string, v any) {
		sets = append(sets, column+" = ?")
		args = append(args, v)
	}

	if u.Title != nil {
		set("title", *u.Title)
	}
	if u.Content != nil {
		set("content", *u.Content)
	}
	if u.Excerpt != nil {
		set("excerpt", *u.Excerpt)
	}
	if u.Tags != nil {
		set("tags", pq.Array(*u.Tags))
	}
	if u.Published != nil {
		set("published", *u.Published)
	}
	if u.FeaturedImage != nil {
		set("featured_image", *u.FeaturedImage)
	}
	if u.ReadTime != nil {
		set("read_time", *u.ReadTime)
	}
	args = append(args, id)

	return db.updateReturning(ctx, id,
		db.conn.Rebind(`UPDATE blogs b SET `+strings.Join(sets, ", ")+` WHERE b.id = ? RETURNING `+blogColumns),
		args...)
}

// LikeBlog increments likes atomically and returns the updated row.
func (db *DB) LikeBlog(ctx context.Context, id int64) (*model.Blog, error) {
	return db.updateReturning(ctx, id,
		`UPDATE blogs b SET likes = likes + 1, updated_at = NOW() WHERE b.id = $1 RETURNING `+blogColumns,
		id)
}

func (db *DB) updateReturning(ctx context.Context, id int64, query string, args ...any) (*model.Blog, error) {
	var r blogRecord
	err := db.conn.GetContext(ctx, &r, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundBlog(id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: updating blog %d: %w", id, err)
	}
	b := r.toModel()
	return &b, nil
}

func (db *DB) DeleteBlog(ctx context.Context, id int64) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM blogs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("postgres: deleting blog %d: %w", id, err)
	}
	return nil
}

// ListTags returns the distinct tags of published blogs in alphabetical order.
func (db *DB) ListTags(ctx context.Context) ([]string, error) {
	tags := []string{}
	err := db.conn.SelectContext(ctx, &tags, `
		SELECT DISTINCT tag
		FROM blogs, unnest(tags) AS t(tag)
		WHERE published
		ORDER BY tag`)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing tags: %w", err)
	}
	return tags, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
