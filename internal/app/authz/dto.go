package authz

type PageID string

func (p PageID) String() string {
	return string(p)
}

type RoleID int

type Role struct {
	ID          RoleID `mapstructure:"id" json:"id"`
	Name        string `mapstructure:"name" json:"name"`
	Description string `mapstructure:"description" json:"description"`
}

// PageRule lists the roles allowed to open a page. Everyone opens it to any role set,
// the empty one included.
type PageRule struct {
	Roles    []RoleID `mapstructure:"roles" json:"roles"`
	Everyone bool     `mapstructure:"everyone" json:"everyone"`
}

type MenuItem struct {
	Page  PageID `mapstructure:"page" json:"page"`
	Label string `mapstructure:"label" json:"label"`
	Path  string `mapstructure:"path" json:"path"`
	Icon  string `mapstructure:"icon" json:"icon,omitempty"`
}

// Policy is the static role to page table together with the ordered menu catalog.
type Policy struct {
	Roles       []Role              `mapstructure:"roles" json:"roles"`
	Pages       map[PageID]PageRule `mapstructure:"pages" json:"pages"`
	Menu        []MenuItem          `mapstructure:"menu" json:"menu"`
	DefaultPage PageID              `mapstructure:"default_page" json:"default_page"`
	LoginPath   string              `mapstructure:"login_path" json:"login_path"`
}

type GuardState string

const (
	GuardLoading         GuardState = "loading"
	GuardUnauthenticated GuardState = "unauthenticated"
	GuardUnauthorized    GuardState = "unauthorized"
	GuardAuthorized      GuardState = "authorized"
)

// Subject is what the guard knows about the current user.
type Subject struct {
	Loading       bool
	Authenticated bool
	Roles         []RoleID
}

// Decision is the outcome of a page guard. RedirectPath is set when the user must
// sign in; RedirectPage when the page is not allowed for the held roles.
type Decision struct {
	State        GuardState `json:"state"`
	Page         PageID     `json:"page"`
	RedirectPage PageID     `json:"redirect_page,omitempty"`
	RedirectPath string     `json:"redirect_path,omitempty"`
}
