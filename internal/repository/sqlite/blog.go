package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/model"
)

const blogColumns = `b.id, b.title, b.content, b.excerpt, b.tags, b.author_id, b.published,
	b.featured_image, b.read_time, b.likes, b.created_at, b.updated_at`

// authorColumns come from a LEFT JOIN, so every one of them may be NULL.
const authorColumns = `u.id, u.email, u.first_name, u.last_name, u.profile_image_url, u.bio,
	u.created_at, u.updated_at`

const blogWithAuthorFrom = `FROM blogs b LEFT JOIN users u ON u.id = b.author_id`

// blogRow is the raw shape of a blogs row before nullable columns and the
// JSON tag array are converted to model types.
type blogRow struct {
	id            int64
	title         string
	content       string
	excerpt       sql.NullString
	tags          string
	authorID      string
	published     bool
	featuredImage sql.NullString
	readTime      int
	likes         int
	createdAt     sql.NullTime
	updatedAt     sql.NullTime
}

func (r *blogRow) dest() []any {
	return []any{
		&r.id, &r.title, &r.content, &r.excerpt, &r.tags, &r.authorID, &r.published,
		&r.featuredImage, &r.readTime, &r.likes, &r.createdAt, &r.updatedAt,
	}
}

func (r *blogRow) toModel() (model.Blog, error) {
	tags, err := decodeTags(r.tags)
	if err != nil {
		return model.Blog{}, fmt.Errorf("blog %d: %w", r.id, err)
	}
	return model.Blog{
		ID:            r.id,
		Title:         r.title,
		Content:       r.content,
		Excerpt:       stringPtr(r.excerpt),
		Tags:          tags,
		AuthorID:      r.authorID,
		Published:     r.published,
		FeaturedImage: stringPtr(r.featuredImage),
		ReadTime:      r.readTime,
		Likes:         r.likes,
		CreatedAt:     r.createdAt.Time,
		UpdatedAt:     r.updatedAt.Time,
	}, nil
}

// authorRow is the optional author side of the join.
type authorRow struct {
	id                                 sql.NullString
	email, first, last, image, bioText sql.NullString
	createdAt, updatedAt               sql.NullTime
}

func (r *authorRow) dest() []any {
	return []any{&r.id, &r.email, &r.first, &r.last, &r.image, &r.bioText, &r.createdAt, &r.updatedAt}
}

// toModel resolves a missing author to model.AnonymousAuthor.
func (r *authorRow) toModel(now time.Time) model.User {
	if !r.id.Valid {
		return model.AnonymousAuthor(now)
	}
	return model.User{
		ID:              r.id.String,
		Email:           stringPtr(r.email),
		FirstName:       stringPtr(r.first),
		LastName:        stringPtr(r.last),
		ProfileImageURL: stringPtr(r.image),
		Bio:             stringPtr(r.bioText),
		CreatedAt:       r.createdAt.Time,
		UpdatedAt:       r.updatedAt.Time,
	}
}

func (db *DB) scanBlogWithAuthor(row scanner) (*model.BlogWithAuthor, error) {
	var (
		b blogRow
		a authorRow
	)
	if err := row.Scan(append(b.dest(), a.dest()...)...); err != nil {
		return nil, err
	}
	blog, err := b.toModel()
	if err != nil {
		return nil, err
	}
	return &model.BlogWithAuthor{
		Blog:   blog,
		Author: a.toModel(db.now()),
	}, nil
}

func scanBlog(row scanner) (*model.Blog, error) {
	var b blogRow
	if err := row.Scan(b.dest()...); err != nil {
		return nil, err
	}
	blog, err := b.toModel()
	if err != nil {
		return nil, err
	}
	return &blog, nil
}

func getBlog(ctx context.Context, q queryer, id int64) (*model.Blog, error) {
	blog, err := scanBlog(q.QueryRowContext(ctx, `SELECT `+blogColumns+` FROM blogs b WHERE b.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("blog", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting blog %d: %w", id, err)
	}
	return blog, nil
}

// ListBlogs returns one page of published blogs, newest first.
//
// FILTERS:
//   - Tag: exact membership in the JSON tag array (json_each).
//   - Search: case-insensitive substring of title OR content. The term's own
//     % and _ characters are escaped so they match literally.
//
// Both filters are AND-ed with published = 1.
func (db *DB) ListBlogs(ctx context.Context, q model.BlogQuery) ([]model.BlogWithAuthor, error) {
	page := q.Page.Normalize()

	where := []string{"b.published = 1"}
	var args []any

	if q.Tag != "" {
		where = append(where, `EXISTS (SELECT 1 FROM json_each(b.tags) t WHERE t.value = ?)`)
		args = append(args, q.Tag)
	}
	if q.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(q.Search)) + "%"
		where = append(where, `(unicode_lower(b.title) LIKE ? ESCAPE '\' OR unicode_lower(b.content) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	args = append(args, page.Limit, page.Offset())

	query := `SELECT ` + blogColumns + `, ` + authorColumns + ` ` + blogWithAuthorFrom +
		` WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY b.created_at DESC, b.id DESC LIMIT ? OFFSET ?`

	blogs, err := db.queryBlogsWithAuthor(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing blogs: %w", err)
	}
	return blogs, nil
}

// ListUserBlogs returns one page of an author's blogs, drafts included.
func (db *DB) ListUserBlogs(ctx context.Context, userID string, p model.Page) ([]model.BlogWithAuthor, error) {
	page := p.Normalize()

	blogs, err := db.queryBlogsWithAuthor(ctx,
		`SELECT `+blogColumns+`, `+authorColumns+` `+blogWithAuthorFrom+`
		 WHERE b.author_id = ?
		 ORDER BY b.created_at DESC, b.id DESC LIMIT ? OFFSET ?`,
		userID, page.Limit, page.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing blogs for user %s: %w", userID, err)
	}
	return blogs, nil
}

func (db *DB) queryBlogsWithAuthor(ctx context.Context, query string, args ...any) ([]model.BlogWithAuthor, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Non-nil so an empty result encodes as [] rather than null.
	blogs := make([]model.BlogWithAuthor, 0)
	for rows.Next() {
		b, err := db.scanBlogWithAuthor(rows)
		if err != nil {
			return nil, err
		}
		blogs = append(blogs, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return blogs, nil
}

// GetBlog returns a blog with its author, whatever its published state.
func (db *DB) GetBlog(ctx context.Context, id int64) (*model.BlogWithAuthor, error) {
	b, err := db.scanBlogWithAuthor(db.conn.QueryRowContext(ctx,
		`SELECT `+blogColumns+`, `+authorColumns+` `+blogWithAuthorFrom+` WHERE b.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("blog", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting blog %d: %w", id, err)
	}
	return b, nil
}

// CreateBlog inserts a blog owned by authorID. Likes start at zero; a nil
// Published means draft and a nil ReadTime falls back to the column default.
func (db *DB) CreateBlog(ctx context.Context, authorID string, in model.InsertBlog) (*model.Blog, error) {
	tags, err := encodeTags(in.Tags)
	if err != nil {
		return nil, err
	}

	blog := &model.Blog{
		Title:         in.Title,
		Content:       in.Content,
		Excerpt:       in.Excerpt,
		Tags:          nonNilTags(in.Tags),
		AuthorID:      authorID,
		Published:     in.Published != nil && *in.Published,
		FeaturedImage: in.FeaturedImage,
		ReadTime:      model.DefaultReadTime,
	}
	if in.ReadTime != nil {
		blog.ReadTime = *in.ReadTime
	}
	now := db.now()
	blog.CreatedAt = now
	blog.UpdatedAt = now

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO blogs (title, content, excerpt, tags, author_id, published, featured_image, read_time, likes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		blog.Title,
		blog.Content,
		nullString(blog.Excerpt),
		tags,
		blog.AuthorID,
		blog.Published,
		nullString(blog.FeaturedImage),
		blog.ReadTime,
		blog.CreatedAt,
		blog.UpdatedAt,
	)
	if err != nil {
		if constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
			return nil, apperror.NotFound("user", authorID)
		}
		return nil, fmt.Errorf("sqlite: creating blog: %w", err)
	}

	blog.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading new blog id: %w", err)
	}
	return blog, nil
}

// UpdateBlog writes only the fields present in u and refreshes updated_at.
func (db *DB) UpdateBlog(ctx context.Context, id int64, u model.UpdateBlog) (*model.Blog, error) {
	sets := make([]string, 0, 8)
	args := make([]any, 0, 9)

	if u.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *u.Title)
	}
	if u.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *u.Content)
	}
	if u.Excerpt != nil {
		sets = append(sets, "excerpt = ?")
		args = append(args, *u.Excerpt)
	}
	if u.Tags != nil {
		tags, err := encodeTags(*u.Tags)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "tags = ?")
		args = append(args, tags)
	}
	if u.Published != nil {
		sets = append(sets, "published = ?")
		args = append(args, *u.Published)
	}
	if u.FeaturedImage != nil {
		sets = append(sets, "featured_image = ?")
		args = append(args, *u.FeaturedImage)
	}
	if u.ReadTime != nil {
		sets = append(sets, "read_time = ?")
		args = append(args, *u.ReadTime)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, db.now(), id)

	return db.updateAndFetch(ctx, id, `UPDATE blogs SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
}

// LikeBlog increments likes with a single UPDATE, so concurrent likes are
// never lost: SQLite evaluates likes + 1 under the write lock.
func (db *DB) LikeBlog(ctx context.Context, id int64) (*model.Blog, error) {
	return db.updateAndFetch(ctx, id,
		`UPDATE blogs SET likes = likes + 1, updated_at = ? WHERE id = ?`, db.now(), id)
}

// updateAndFetch runs an UPDATE against one blog and reads the row back in
// the same transaction. Zero affected rows means the blog does not exist.
func (db *DB) updateAndFetch(ctx context.Context, id int64, stmt string, args ...any) (*model.Blog, error) {
	var out *model.Blog
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, stmt, args...)
		if err != nil {
			return fmt.Errorf("sqlite: updating blog %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: updating blog %d: %w", id, err)
		}
		if n == 0 {
			return apperror.NotFound("blog", strconv.FormatInt(id, 10))
		}

		out, err = getBlog(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteBlog removes a blog. Deleting a blog that does not exist succeeds.
func (db *DB) DeleteBlog(ctx context.Context, id int64) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM blogs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting blog %d: %w", id, err)
	}
	return nil
}

// ListTags returns the distinct tags of published blogs in alphabetical order.
func (db *DB) ListTags(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT t.value
		FROM blogs b, json_each(b.tags) t
		WHERE b.published = 1
		ORDER BY t.value`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags: %w", err)
	}
	defer rows.Close()

	tags := make([]string, 0)
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: listing tags: %w", err)
	}
	return tags, nil
}

func encodeTags(tags []string) (string, error) {
	data, err := json.Marshal(nonNilTags(tags))
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding tags: %w", err)
	}
	return string(data), nil
}

func decodeTags(raw string) ([]string, error) {
	tags := make([]string, 0)
	if raw == "" {
		return tags, nil
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	if tags == nil {
		tags = make([]string, 0)
	}
	return tags, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// escapeLike escapes the LIKE metacharacters in s using backslash, which the
// queries declare with ESCAPE '\'.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
