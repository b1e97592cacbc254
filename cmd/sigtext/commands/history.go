package commands

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/tusharbhayani/SigText/internal/model"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse cached verified messages interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			st, err := openStore(cfg, quietLogger())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			msgs, err := st.RecentMessages(limit)
			if err != nil {
				return err
			}
			if len(msgs) == 0 {
				fmt.Println("No verified messages cached. Run 'sigtext sync' first.")
				return nil
			}

			_, err = tea.NewProgram(newHistoryModel(msgs), tea.WithAltScreen()).Run()
			return err
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "max messages to load")
	return cmd
}

var (
	historyBaseStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("240"))
	historyDetailStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(0, 1)
	historyHelpStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))
)

type historyModel struct {
	table  table.Model
	msgs   []model.VerifiedMessage
	detail *model.VerifiedMessage
}

func newHistoryModel(msgs []model.VerifiedMessage) historyModel {
	columns := []table.Column{
		{Title: "Verified", Width: 19},
		{Title: "Sender", Width: 24},
		{Title: "Message", Width: 48},
	}
	rows := make([]table.Row, len(msgs))
	for i, m := range msgs {
		rows[i] = table.Row{
			m.VerifiedAt.Format("2006-01-02 15:04:05"),
			truncateCell(m.Sender, 24),
			truncateCell(m.Content, 48),
		}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(styles)

	return historyModel{table: t, msgs: msgs}
}

func (m historyModel) Init() tea.Cmd {
	return nil
}

func (m historyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.detail != nil {
				m.detail = nil
				return m, nil
			}
			return m, tea.Quit
		case "enter":
			if m.detail != nil {
				m.detail = nil
				return m, nil
			}
			if i := m.table.Cursor(); i >= 0 && i < len(m.msgs) {
				m.detail = &m.msgs[i]
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m historyModel) View() string {
	if m.detail != nil {
		d := m.detail
		body := fmt.Sprintf(
			"Message ID:    %s\nOrganization:  %s\nSender:        %s\nVerified at:   %s\nContent hash:  %s\nSignature:     %s\n\n%s",
			d.ID, d.OrgID, d.Sender,
			d.VerifiedAt.Format("2006-01-02 15:04:05 MST"),
			truncateCell(d.ContentHash, 64),
			truncateCell(d.Signature, 64),
			d.Content,
		)
		return historyDetailStyle.Render(body) + "\n" +
			historyHelpStyle.Render("enter/esc: back • q: quit") + "\n"
	}
	return historyBaseStyle.Render(m.table.View()) + "\n" +
		historyHelpStyle.Render("enter: details • q: quit") + "\n"
}

func truncateCell(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= 1 {
		return s[:width]
	}
	return s[:width-1] + "…"
}
