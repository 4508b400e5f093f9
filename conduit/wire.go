package conduit

// Credentials identify a conduit user for login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AccessToken is a bearer credential returned by Login. It is only ever passed around as a
// value; nothing stores it.
type AccessToken string

// AuthorizationHeader returns the value for the Authorization header.
func (t AccessToken) AuthorizationHeader() string {
	return "Token " + string(t)
}

type loginRequest struct {
	User Credentials `json:"user"`
}

type loginResponse struct {
	User struct {
		Email       string `json:"email"`
		Username    string `json:"username"`
		Token       string `json:"token"`
		AccessToken string `json:"accessToken"`
	} `json:"user"`
}

// NewArticle is the body of an article creation request.
type NewArticle struct {
	TagList     []string `json:"tagList"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Body        string   `json:"body"`
}

type newArticleRequest struct {
	Article NewArticle `json:"article"`
}

type Profile struct {
	Username  string `json:"username"`
	Bio       string `json:"bio"`
	Image     string `json:"image"`
	Following bool   `json:"following"`
}

type Article struct {
	Slug           string   `json:"slug"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Body           string   `json:"body"`
	TagList        []string `json:"tagList"`
	CreatedAt      string   `json:"createdAt"`
	UpdatedAt      string   `json:"updatedAt"`
	Favorited      bool     `json:"favorited"`
	FavoritesCount int      `json:"favoritesCount"`
	Author         Profile  `json:"author"`
}

type articleResponse struct {
	Article Article `json:"article"`
}

// ArticleList is the response to an article list query.
type ArticleList struct {
	Articles      []Article `json:"articles"`
	ArticlesCount int       `json:"articlesCount"`
}

// ArticleQuery selects a page of the global article feed. Zero values are omitted.
type ArticleQuery struct {
	Tag    string
	Author string
	Limit  int
	Offset int
}

// TagList is the response to a tag list query.
type TagList struct {
	Tags []string `json:"tags"`
}
