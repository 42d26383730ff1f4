package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

type employeeView struct {
	ID         int64  `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	DateJoined string `json:"date_joined"`
}

type restaurantView struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	DateJoined string `json:"date_joined"`
}

type menuItemView struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type menuView struct {
	ID           int64          `json:"id"`
	Items        []menuItemView `json:"items"`
	Title        *string        `json:"title"`
	Notes        *string        `json:"notes"`
	LaunchDate   string         `json:"launch_date"`
	DateCreated  string         `json:"date_created"`
	LastModified string         `json:"last_modified"`
	Restaurant   int64          `json:"restaurant"`
}

type tallyView struct {
	MenuID   int64 `json:"menu_id"`
	Likes    int   `json:"likes"`
	Dislikes int   `json:"dislikes"`
	Result   int   `json:"result"`
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// NewEmployeeCommand creates the employee command group.
func NewEmployeeCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "employee", Short: "Create and inspect employees"}

	var in struct {
		Username  string `json:"username"`
		Password  string `json:"password"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	create := &cobra.Command{
		Use:   "create",
		Short: "Register an employee (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				ID int64 `json:"employee_id"`
			}
			if err := root.client().Do(cmd.Context(), http.MethodPost, "/employee/", in, &out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ employee %d created\n", out.ID)
			return nil
		},
	}
	create.Flags().StringVar(&in.Username, "username", "", "login name")
	create.Flags().StringVar(&in.Password, "password", "", "password")
	create.Flags().StringVar(&in.Email, "email", "", "email address")
	create.Flags().StringVar(&in.FirstName, "first-name", "", "first name")
	create.Flags().StringVar(&in.LastName, "last-name", "", "last name")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show an employee (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var e employeeView
			if err := root.client().Do(cmd.Context(), http.MethodGet, fmt.Sprintf("/employee/%d/", id), nil, &e); err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), root.Format, e, []string{"ID", "FIRST NAME", "LAST NAME", "JOINED"}, func() [][]string {
				return [][]string{{itoa(e.ID), e.FirstName, e.LastName, e.DateJoined}}
			})
		},
	}

	cmd.AddCommand(create, get)
	return cmd
}

// NewRestaurantCommand creates the restaurant command group.
func NewRestaurantCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "restaurant", Short: "Create and inspect restaurants"}

	var in struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
	}
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a restaurant and its login (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				ID int64 `json:"restaurant_id"`
			}
			if err := root.client().Do(cmd.Context(), http.MethodPost, "/restaurant/", in, &out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ restaurant %d created\n", out.ID)
			return nil
		},
	}
	create.Flags().StringVar(&in.Name, "name", "", "restaurant name")
	create.Flags().StringVar(&in.Username, "username", "", "login name")
	create.Flags().StringVar(&in.Password, "password", "", "password")
	create.Flags().StringVar(&in.Email, "email", "", "email address")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a restaurant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var r restaurantView
			if err := root.client().Do(cmd.Context(), http.MethodGet, fmt.Sprintf("/restaurant/%d/", id), nil, &r); err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), root.Format, r, []string{"ID", "NAME", "JOINED"}, func() [][]string {
				return [][]string{{itoa(r.ID), r.Name, r.DateJoined}}
			})
		},
	}

	cmd.AddCommand(create, get)
	return cmd
}

type menuItemFlag struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// parseItems reads repeated --item "Title=Description" flags.
func parseItems(raw []string) ([]menuItemFlag, error) {
	items := make([]menuItemFlag, 0, len(raw))
	for _, r := range raw {
		title, desc, ok := strings.Cut(r, "=")
		if !ok {
			return nil, fmt.Errorf("item %q: want Title=Description", r)
		}
		items = append(items, menuItemFlag{Title: strings.TrimSpace(title), Description: strings.TrimSpace(desc)})
	}
	return items, nil
}

func renderMenus(cmd *cobra.Command, format string, menus []menuView) error {
	return render(cmd.OutOrStdout(), format, menus, []string{"ID", "RESTAURANT", "TITLE", "LAUNCH", "ITEMS"}, func() [][]string {
		rows := make([][]string, 0, len(menus))
		for _, m := range menus {
			titles := make([]string, 0, len(m.Items))
			for _, it := range m.Items {
				titles = append(titles, it.Title)
			}
			rows = append(rows, []string{itoa(m.ID), itoa(m.Restaurant), deref(m.Title), m.LaunchDate, strings.Join(titles, ", ")})
		}
		return rows
	})
}

// NewMenuCommand creates the menu command group.
func NewMenuCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "menu", Short: "Publish and browse menus"}

	var (
		restaurant  int64
		title       string
		notes       string
		launchDate  string
		itemEntries []string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Publish a menu",
		Long: `Publish a menu. Items are given as repeated --item "Title=Description" flags;
a title the restaurant already uses keeps its id and takes the new description.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := parseItems(itemEntries)
			if err != nil {
				return err
			}
			body := map[string]any{
				"restaurant":  restaurant,
				"launch_date": launchDate,
				"items":       items,
			}
			if cmd.Flags().Changed("title") {
				body["title"] = title
			}
			if cmd.Flags().Changed("notes") {
				body["notes"] = notes
			}
			var out struct {
				ID int64 `json:"menu_id"`
			}
			if err := root.client().Do(cmd.Context(), http.MethodPost, "/menu/", body, &out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ menu %d created\n", out.ID)
			return nil
		},
	}
	create.Flags().Int64Var(&restaurant, "restaurant", 0, "restaurant id")
	create.Flags().StringVar(&title, "title", "", "menu title")
	create.Flags().StringVar(&notes, "notes", "", "free text notes")
	create.Flags().StringVar(&launchDate, "date", "", "launch date YYYY-MM-DD")
	create.Flags().StringArrayVar(&itemEntries, "item", nil, `menu item as "Title=Description" (repeatable)`)
	_ = create.MarkFlagRequired("restaurant")
	_ = create.MarkFlagRequired("date")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one menu",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var m menuView
			if err := root.client().Do(cmd.Context(), http.MethodGet, fmt.Sprintf("/menu/%d/", id), nil, &m); err != nil {
				return err
			}
			return renderMenus(cmd, root.Format, []menuView{m})
		},
	}

	date := &cobra.Command{
		Use:   "date <YYYY-MM-DD>",
		Short: "List menus launched on a day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var menus []menuView
			if err := root.client().Do(cmd.Context(), http.MethodGet, "/menu/"+url.PathEscape(args[0])+"/", nil, &menus); err != nil {
				return err
			}
			return renderMenus(cmd, root.Format, menus)
		},
	}

	today := &cobra.Command{
		Use:   "today",
		Short: "List today's menus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var menus []menuView
			if err := root.client().Do(cmd.Context(), http.MethodGet, "/menu/", nil, &menus); err != nil {
				return err
			}
			return renderMenus(cmd, root.Format, menus)
		},
	}

	cmd.AddCommand(create, get, date, today)
	return cmd
}

// NewVoteCommand creates the vote command group.
func NewVoteCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "vote", Short: "Vote on menus and read the tally"}

	var dislike bool
	cast := &cobra.Command{
		Use:   "cast <menu-id>",
		Short: "Like a menu, or dislike it with --dislike",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var out struct {
				VoteID int64  `json:"vote_id"`
				Action string `json:"action"`
			}
			body := map[string]bool{"like": !dislike}
			if err := root.client().Do(cmd.Context(), http.MethodPost, fmt.Sprintf("/menu/%d/vote/", id), body, &out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s menu %d (vote %d)\n", out.Action, id, out.VoteID)
			return nil
		},
	}
	cast.Flags().BoolVar(&dislike, "dislike", false, "record a dislike instead of a like")

	var day string
	results := &cobra.Command{
		Use:   "results",
		Short: "Show likes and dislikes per menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/vote/results/"
			if day != "" {
				path += "?date=" + url.QueryEscape(day)
			}
			var tallies []tallyView
			if err := root.client().Do(cmd.Context(), http.MethodGet, path, nil, &tallies); err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), root.Format, tallies, []string{"MENU", "LIKES", "DISLIKES", "RESULT"}, func() [][]string {
				rows := make([][]string, 0, len(tallies))
				for _, t := range tallies {
					rows = append(rows, []string{itoa(t.MenuID), strconv.Itoa(t.Likes), strconv.Itoa(t.Dislikes), strconv.Itoa(t.Result)})
				}
				return rows
			})
		},
	}
	results.Flags().StringVar(&day, "date", "", "day to report, YYYY-MM-DD (default today)")

	cmd.AddCommand(cast, results)
	return cmd
}
