package main

import (
	"fmt"

	ahadi "github.com/ahadi-events/ahadi-sdk-go"
	"github.com/spf13/cobra"
)

var (
	eventsListPage   int
	eventsListType   string
	eventsListSearch string
	eventsListJSON   bool

	eventTypesJSON bool

	announcementsEvent int64
	announcementsPage  int
	announcementsJSON  bool

	invitationsEvent int64
	invitationsPage  int
	invitationsJSON  bool

	templatesCategory   string
	templatesFree       bool
	templatesPremium    bool
	templatesCategories bool
	templatesJSON       bool
)

// ============================================================================
// Public catalogue
// ============================================================================

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Browse public events",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List public events",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := getClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		page, err := client.Public.Events(ctx, &ahadi.PublicEventsOptions{
			Page:      eventsListPage,
			EventType: eventsListType,
			Search:    eventsListSearch,
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if eventsListJSON {
			return printJSON(out, page)
		}
		if len(page.Results) == 0 {
			fmt.Fprintln(out, "No events found.")
			return nil
		}
		for _, e := range page.Results {
			fmt.Fprintf(out, "  %d: %s (%s) %s @ %s\n", e.ID, e.Title,
				valueOrDefault(e.EventTypeName, "event"), e.StartDate, valueOrDefault(e.VenueName, e.Location))
		}
		return nil
	},
}

var eventTypesCmd = &cobra.Command{
	Use:   "event-types",
	Short: "List event types",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := getClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		page, err := client.Public.EventTypes(ctx, 0)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if eventTypesJSON {
			return printJSON(out, page)
		}
		for _, t := range page.Results {
			fmt.Fprintf(out, "  %-16s %s\n", t.Slug, t.Name)
		}
		return nil
	},
}

// ============================================================================
// Announcements
// ============================================================================

var announcementsCmd = &cobra.Command{
	Use:   "announcements",
	Short: "Event announcements",
}

var announcementsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List announcements",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := getClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		page, err := client.Announcements.List(ctx, &ahadi.ListOptions{Page: announcementsPage, Event: announcementsEvent})
		if err != nil {
			return authHint(err)
		}
		out := cmd.OutOrStdout()
		if announcementsJSON {
			return printJSON(out, page)
		}
		if len(page.Results) == 0 {
			fmt.Fprintln(out, "No announcements.")
			return nil
		}
		for _, a := range page.Results {
			pin := " "
			if a.IsPinned {
				pin = "^"
			}
			fmt.Fprintf(out, "%s %d  [event %d] %s\n", pin, a.ID, a.Event, a.Title)
		}
		return nil
	},
}

// ============================================================================
// Invitations
// ============================================================================

var invitationsCmd = &cobra.Command{
	Use:   "invitations",
	Short: "Event invitations",
}

var invitationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invitations",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := getClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		page, err := client.Invitations.List(ctx, &ahadi.ListOptions{Page: invitationsPage, Event: invitationsEvent})
		if err != nil {
			return authHint(err)
		}
		out := cmd.OutOrStdout()
		if invitationsJSON {
			return printJSON(out, page)
		}
		if len(page.Results) == 0 {
			fmt.Fprintln(out, "No invitations.")
			return nil
		}
		for _, inv := range page.Results {
			fmt.Fprintf(out, "  %d  [event %d] %s %s  %s\n", inv.ID, inv.Event,
				inv.ParticipantName, inv.ParticipantPhone, valueOrDefault(inv.Status, "pending"))
		}
		return nil
	},
}

var invitationsSendCmd = &cobra.Command{
	Use:   "send <invitation-id>",
	Short: "Deliver an invitation to its participant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "invitation id")
		if err != nil {
			return err
		}
		client, _, err := getClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		inv, err := client.Invitations.Send(ctx, id)
		if err != nil {
			return authHint(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Invitation %d: %s\n", id, valueOrDefault(inv.Status, "sent"))
		if inv.ShareLink != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  Link: %s\n", inv.ShareLink)
		}
		return nil
	},
}

var invitationsTemplatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List invitation card templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := getClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()
		out := cmd.OutOrStdout()

		if templatesCategories {
			cats, err := client.InvitationTemplates.Categories(ctx)
			if err != nil {
				return authHint(err)
			}
			if templatesJSON {
				return printJSON(out, cats)
			}
			for _, c := range cats {
				fmt.Fprintf(out, "  %-12s %s\n", c.Category, valueOrDefault(c.CategoryDisplay, c.Name))
			}
			return nil
		}

		var templates []ahadi.InvitationTemplate
		switch {
		case templatesCategory != "":
			templates, err = client.InvitationTemplates.ByCategory(ctx, templatesCategory)
		case templatesFree:
			templates, err = client.InvitationTemplates.Free(ctx)
		case templatesPremium:
			templates, err = client.InvitationTemplates.Premium(ctx)
		default:
			var page *ahadi.Page[ahadi.InvitationTemplate]
			page, err = client.InvitationTemplates.List(ctx, 0)
			if page != nil {
				templates = page.Results
			}
		}
		if err != nil {
			return authHint(err)
		}
		if templatesJSON {
			return printJSON(out, templates)
		}
		if len(templates) == 0 {
			fmt.Fprintln(out, "No templates.")
			return nil
		}
		for _, t := range templates {
			tier := "free"
			if t.IsPremium {
				tier = "premium"
			}
			fmt.Fprintf(out, "  %d  %s  [%s] %s\n", t.ID, t.Name, valueOrDefault(t.CategoryDisplay, t.Category), tier)
		}
		return nil
	},
}

func init() {
	eventsListCmd.Flags().IntVar(&eventsListPage, "page", 0, "Page number")
	eventsListCmd.Flags().StringVar(&eventsListType, "type", "", "Filter by event type slug")
	eventsListCmd.Flags().StringVar(&eventsListSearch, "search", "", "Search text")
	eventsListCmd.Flags().BoolVar(&eventsListJSON, "json", false, "Output raw JSON")
	eventTypesCmd.Flags().BoolVar(&eventTypesJSON, "json", false, "Output raw JSON")

	announcementsListCmd.Flags().Int64Var(&announcementsEvent, "event", 0, "Filter by event id")
	announcementsListCmd.Flags().IntVar(&announcementsPage, "page", 0, "Page number")
	announcementsListCmd.Flags().BoolVar(&announcementsJSON, "json", false, "Output raw JSON")

	invitationsListCmd.Flags().Int64Var(&invitationsEvent, "event", 0, "Filter by event id")
	invitationsListCmd.Flags().IntVar(&invitationsPage, "page", 0, "Page number")
	invitationsListCmd.Flags().BoolVar(&invitationsJSON, "json", false, "Output raw JSON")
	invitationsTemplatesCmd.Flags().StringVar(&templatesCategory, "category", "", "Filter by category code, e.g. WEDDING")
	invitationsTemplatesCmd.Flags().BoolVar(&templatesFree, "free", false, "Only free templates")
	invitationsTemplatesCmd.Flags().BoolVar(&templatesPremium, "premium", false, "Only premium templates")
	invitationsTemplatesCmd.Flags().BoolVar(&templatesCategories, "categories", false, "List categories instead of templates")
	invitationsTemplatesCmd.Flags().BoolVar(&templatesJSON, "json", false, "Output raw JSON")
	invitationsTemplatesCmd.MarkFlagsMutuallyExclusive("category", "free", "premium", "categories")

	eventsCmd.AddCommand(eventsListCmd)
	announcementsCmd.AddCommand(announcementsListCmd)
	invitationsCmd.AddCommand(invitationsListCmd)
	invitationsCmd.AddCommand(invitationsSendCmd)
	invitationsCmd.AddCommand(invitationsTemplatesCmd)

	requiresAuth(announcementsCmd)
	requiresAuth(invitationsCmd)

	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(eventTypesCmd)
	rootCmd.AddCommand(announcementsCmd)
	rootCmd.AddCommand(invitationsCmd)
}
