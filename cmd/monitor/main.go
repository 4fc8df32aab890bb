package main

import (
	"bytes"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"campaign_feed/internal/api"
	"campaign_feed/internal/client"
	"campaign_feed/internal/domain"
)

type embeddedServer struct {
	cmd *exec.Cmd
}

func main() {
	addr := flag.String("addr", "http://localhost:8092", "feedsim base URL")
	interval := flag.Duration("interval", time.Second, "refresh interval")
	embedded := flag.Bool("embedded", true, "start feedsim in the same monitor process lifecycle")
	serverBinary := flag.String("feedsim-bin", "", "path to feedsim binary (optional in embedded mode)")
	dbPath := flag.String("db", "data/embedded.db", "sqlite db path for embedded feedsim")
	provider := flag.String("provider", "", "generation provider for embedded feedsim (openrouter, gemini, mock)")
	flag.Parse()

	c := client.New(*addr, 10*time.Second)

	if *embedded {
		proc, err := startEmbeddedServer(*addr, *serverBinary, *dbPath, *provider)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start embedded feedsim: %v\n", err)
			os.Exit(1)
		}
		defer proc.Stop()
	}

	if err := c.WaitHealth(30 * time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "feedsim health check failed: %v\n", err)
		os.Exit(1)
	}

	app := tview.NewApplication()
	feedTable := tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false)
	feedTable.SetTitle("Feed (Enter inspect, F5 refresh, F10 quit)").SetBorder(true)

	reactionsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true)
	reactionsView.SetTitle("Reactions").SetBorder(true)

	personasView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	personasView.SetTitle("Personas").SetBorder(true)

	newsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true)
	newsView.SetTitle("News").SetBorder(true)

	campaignView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	campaignView.SetTitle("Campaign").SetBorder(true)

	promptInput := tview.NewInputField().
		SetLabel("Post as candidate: ")
	promptInput.SetBorder(true).SetTitle("Enter = publish, #issue adds a tag")

	statusView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	statusView.SetBorder(true).SetTitle("Status")
	statusView.SetText(fmt.Sprintf(
		"Connected to %s | embedded=%t | shortcuts: F10 quit, F5 refresh, Ctrl+P pause/resume, Ctrl+S save, Ctrl+L focus prompt, Ctrl+T focus feed",
		c.BaseURL(),
		*embedded,
	))

	rightTop := tview.NewFlex().
		AddItem(reactionsView, 0, 2, false).
		AddItem(personasView, 0, 1, false)
	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(campaignView, 6, 0, false).
		AddItem(rightTop, 0, 3, false).
		AddItem(newsView, 0, 1, false)

	mainLayout := tview.NewFlex().
		AddItem(feedTable, 0, 1, false).
		AddItem(right, 0, 1, false)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(mainLayout, 0, 12, false).
		AddItem(promptInput, 3, 0, true).
		AddItem(statusView, 3, 0, false)

	var selectedPostID string
	var lastPosts []domain.Post
	var lastPersonas []domain.Persona
	var paused atomic.Bool
	var refreshVersion uint64

	setStatusUI := func(msg string) {
		statusView.SetText(msg)
	}
	setStatusAsync := func(msg string) {
		app.QueueUpdateDraw(func() {
			statusView.SetText(msg)
		})
	}

	refresh := func() {
		version := atomic.AddUint64(&refreshVersion, 1)
		type feedResult struct {
			posts []domain.Post
			err   error
		}
		type personaResult struct {
			items []domain.Persona
			err   error
		}
		type newsResult struct {
			items []domain.NewsItem
			err   error
		}
		type statusResult struct {
			st  api.StatusResponse
			err error
		}

		feedCh := make(chan feedResult, 1)
		personaCh := make(chan personaResult, 1)
		newsCh := make(chan newsResult, 1)
		statusCh := make(chan statusResult, 1)

		go func() {
			posts, err := c.Feed(50)
			feedCh <- feedResult{posts: posts, err: err}
		}()
		go func() {
			items, err := c.Personas()
			personaCh <- personaResult{items: items, err: err}
		}()
		go func() {
			items, err := c.News(10)
			newsCh <- newsResult{items: items, err: err}
		}()
		go func() {
			st, err := c.Status()
			statusCh <- statusResult{st: st, err: err}
		}()

		feedRes := <-feedCh
		personaRes := <-personaCh
		newsRes := <-newsCh
		statusRes := <-statusCh

		if atomic.LoadUint64(&refreshVersion) != version {
			return
		}
		app.QueueUpdateDraw(func() {
			if feedRes.err != nil {
				feedTable.Clear()
				feedTable.SetCell(0, 0, tview.NewTableCell(fmt.Sprintf("load error: %v", feedRes.err)).SetTextColor(tview.Styles.ContrastSecondaryTextColor))
			} else {
				lastPosts = feedRes.posts
				if selectedPostID == "" && len(lastPosts) > 0 {
					selectedPostID = lastPosts[0].ID
				}
				renderFeedTable(feedTable, lastPosts, selectedPostID)
			}
			if personaRes.err != nil {
				personasView.SetText(fmt.Sprintf("error: %v", personaRes.err))
			} else {
				lastPersonas = personaRes.items
				personasView.SetText(renderPersonas(lastPersonas))
			}
			if newsRes.err != nil {
				newsView.SetText(fmt.Sprintf("error: %v", newsRes.err))
			} else {
				newsView.SetText(renderNews(newsRes.items))
			}
			if statusRes.err != nil {
				campaignView.SetText(fmt.Sprintf("error: %v", statusRes.err))
			} else {
				paused.Store(statusRes.st.Paused)
				campaignView.SetText(renderCampaign(statusRes.st))
			}
			reactionsView.SetText(renderReactions(findPost(lastPosts, selectedPostID), lastPersonas))
		})
	}

	submitPost := func(input string) {
		content, tags := splitTags(input)
		if content == "" {
			return
		}
		setStatusUI("Publishing post...")
		promptInput.SetText("")
		go func() {
			post, err := c.Post(content, tags)
			if err != nil {
				setStatusAsync("Post rejected: " + err.Error())
				return
			}
			app.QueueUpdate(func() {
				selectedPostID = post.ID
			})
			refresh()
			setStatusAsync(fmt.Sprintf("Posted at tick %d, waiting for reactions", post.Timestamp))
		}()
	}

	togglePause := func() {
		go func() {
			wasPaused := paused.Load()
			var err error
			if wasPaused {
				err = c.Resume()
			} else {
				err = c.Pause()
			}
			if err != nil {
				setStatusAsync("Clock toggle failed: " + err.Error())
				return
			}
			refresh()
			if wasPaused {
				setStatusAsync("Clock running")
			} else {
				setStatusAsync("Clock paused")
			}
		}()
	}

	saveSnapshot := func() {
		go func() {
			tick, err := c.Snapshot()
			if err != nil {
				setStatusAsync("Snapshot failed: " + err.Error())
				return
			}
			setStatusAsync(fmt.Sprintf("Snapshot saved at tick %d", tick))
		}()
	}

	promptInput.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		submitPost(promptInput.GetText())
	})

	feedTable.SetSelectedFunc(func(row, _ int) {
		if row <= 0 || row > len(lastPosts) {
			return
		}
		selectedPostID = lastPosts[row-1].ID
		reactionsView.SetText(renderReactions(findPost(lastPosts, selectedPostID), lastPersonas))
	})

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF10:
			app.Stop()
			return nil
		case tcell.KeyF5:
			go refresh()
			setStatusUI("Manual refresh")
			return nil
		case tcell.KeyCtrlP:
			togglePause()
			return nil
		case tcell.KeyCtrlS:
			saveSnapshot()
			return nil
		case tcell.KeyCtrlL:
			app.SetFocus(promptInput)
			setStatusUI("Focus -> prompt")
			return nil
		case tcell.KeyCtrlT, tcell.KeyEscape:
			app.SetFocus(feedTable)
			setStatusUI("Focus -> feed")
			return nil
		case tcell.KeyTAB:
			if app.GetFocus() == promptInput {
				app.SetFocus(feedTable)
			} else {
				app.SetFocus(promptInput)
			}
			return nil
		}
		if app.GetFocus() != promptInput && event.Key() == tcell.KeyRune {
			app.SetFocus(promptInput)
		}
		return event
	})

	go func() {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()

		refresh()
		for range ticker.C {
			refresh()
		}
	}()

	if err := app.SetRoot(root, true).EnableMouse(true).SetFocus(promptInput).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "monitor failed: %v\n", err)
		os.Exit(1)
	}
}

func startEmbeddedServer(addr string, serverBinary string, dbPath string, provider string) (*embeddedServer, error) {
	parsed, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse addr: %w", err)
	}
	port := parsed.Port()
	if port == "" {
		return nil, fmt.Errorf("addr must include explicit port, got %q", addr)
	}
	args := []string{"--addr", ":" + port, "--db", dbPath}
	if strings.TrimSpace(provider) != "" {
		args = append(args, "--provider", provider)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	var cmd *exec.Cmd
	if strings.TrimSpace(serverBinary) != "" {
		cmd = exec.Command(serverBinary, args...)
	} else {
		self, err := os.Executable()
		if err == nil {
			for _, name := range []string{"feedsim", "feedsim.exe"} {
				sibling := filepath.Join(filepath.Dir(self), name)
				if fileExists(sibling) {
					cmd = exec.Command(sibling, args...)
					break
				}
			}
		}
		if cmd == nil {
			cmd = exec.Command("go", append([]string{"run", "./cmd/feedsim"}, args...)...)
			cwd, _ := os.Getwd()
			cmd.Dir = cwd
		}
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start feedsim process: %w", err)
	}
	return &embeddedServer{cmd: cmd}, nil
}

func (e *embeddedServer) Stop() {
	if e == nil || e.cmd == nil || e.cmd.Process == nil {
		return
	}
	_ = e.cmd.Process.Kill()
	_, _ = e.cmd.Process.Wait()
}

func renderFeedTable(table *tview.Table, posts []domain.Post, selectedPostID string) {
	table.Clear()
	headers := []string{"Tick", "Type", "Author", "L/R/D", "Reacts", "Content"}
	for i, h := range headers {
		table.SetCell(0, i, tview.NewTableCell(h).SetSelectable(false).SetAttributes(tcell.AttrBold))
	}
	for i, p := range posts {
		row := i + 1
		shown, total := revealedCount(p)
		reacts := fmt.Sprintf("%d/%d", shown, total)
		if p.IsProcessing {
			reacts += "*"
		}
		table.SetCell(row, 0, tview.NewTableCell(fmt.Sprintf("%d", p.Timestamp)))
		table.SetCell(row, 1, tview.NewTableCell(string(p.Type)).SetTextColor(postColor(p.Type)))
		table.SetCell(row, 2, tview.NewTableCell(p.Author.Handle))
		table.SetCell(row, 3, tview.NewTableCell(fmt.Sprintf("%d/%d/%d", p.Engagement.DisplayedLikes, p.Engagement.DisplayedRetweets, p.Engagement.DisplayedDislikes)))
		table.SetCell(row, 4, tview.NewTableCell(reacts))
		table.SetCell(row, 5, tview.NewTableCell(trimLine(p.Content, 64)))
		if p.ID == selectedPostID {
			table.Select(row, 0)
		}
	}
}

func postColor(t domain.PostType) tcell.Color {
	switch t {
	case domain.PostTypeRival:
		return tcell.ColorRed
	case domain.PostTypeNews:
		return tcell.ColorYellow
	default:
		return tcell.ColorGreen
	}
}

func revealedCount(p domain.Post) (shown, total int) {
	for _, r := range p.Reactions {
		if r.IsDisplayed {
			shown++
		}
	}
	return shown, len(p.Reactions)
}

func findPost(posts []domain.Post, id string) *domain.Post {
	for i := range posts {
		if posts[i].ID == id {
			return &posts[i]
		}
	}
	return nil
}

// renderReactions lists the revealed reactions of post; hidden ones only
// count toward the pending total.
func renderReactions(post *domain.Post, personas []domain.Persona) string {
	if post == nil {
		return "No post selected"
	}
	names := make(map[string]string, len(personas))
	for _, p := range personas {
		names[p.ID] = p.Name
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[::b]%s[::-] %s\n\n", post.Author.Name, tview.Escape(trimLine(post.Content, 200))))
	pending := 0
	for _, r := range post.Reactions {
		if !r.IsDisplayed {
			pending++
			continue
		}
		name := names[r.PersonaID]
		if name == "" {
			name = r.PersonaID
		}
		b.WriteString(fmt.Sprintf("[%s]%-9s[-] %s (%+d)\n", sentimentColor(r.SentimentShift), r.ReactionType, name, r.SentimentShift))
		if r.Comment != nil {
			b.WriteString("  " + tview.Escape(trimLine(*r.Comment, 200)) + "\n")
		}
	}
	if pending > 0 {
		b.WriteString(fmt.Sprintf("\n%d reaction(s) still arriving", pending))
	} else if post.IsProcessing {
		b.WriteString("\ncollecting reactions...")
	}
	return b.String()
}

func sentimentColor(shift int) string {
	switch {
	case shift > 0:
		return "green"
	case shift < 0:
		return "red"
	default:
		return "white"
	}
}

func renderPersonas(personas []domain.Persona) string {
	if len(personas) == 0 {
		return "No personas"
	}
	sorted := append([]domain.Persona(nil), personas...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OpinionOfPlayer > sorted[j].OpinionOfPlayer
	})
	var b strings.Builder
	for _, p := range sorted {
		b.WriteString(fmt.Sprintf("%-18s you=%4d rival=%4d\n", trimLine(p.Name, 18), p.OpinionOfPlayer, p.OpinionOfRival))
	}
	return b.String()
}

func renderNews(items []domain.NewsItem) string {
	if len(items) == 0 {
		return "No news"
	}
	var b strings.Builder
	for _, n := range items {
		b.WriteString(fmt.Sprintf("[t=%d] [::b]%s[::-]\n  %s\n", n.Timestamp, tview.Escape(n.Headline), tview.Escape(trimLine(n.Description, 160))))
	}
	return b.String()
}

func renderCampaign(st api.StatusResponse) string {
	if !st.Started {
		return "No campaign in progress"
	}
	clock := "[green]running[-]"
	if st.Paused {
		clock = "[yellow]paused[-]"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("tick=%d clock=%s next news=%d rival=%d\n", st.Tick, clock, st.NextNewsTick, st.NextRivalTick))
	if st.Player != nil && st.Rival != nil {
		b.WriteString(fmt.Sprintf("%s %d%%  vs  %s %d%%\n", st.Player.CandidateName, st.PlayerFavorability, st.Rival.Name, st.RivalFavorability))
	}
	b.WriteString(fmt.Sprintf("queue pending=%d active=%d  tokens=%d cost=$%.4f\n", st.Queue.Pending, st.Queue.Active, st.Usage.TotalTokens, st.Usage.TotalCost))
	if len(st.HotIssues) > 0 {
		labels := make([]string, len(st.HotIssues))
		for i, v := range st.HotIssues {
			labels[i] = v.Label()
		}
		b.WriteString("hot: " + strings.Join(labels, ", "))
	}
	return b.String()
}

// splitTags pulls #issue words out of a prompt line. Unknown hashtags stay
// in the content.
func splitTags(input string) (string, []string) {
	var words []string
	var tags []string
	for _, w := range strings.Fields(input) {
		if strings.HasPrefix(w, "#") {
			issue := domain.Issue(strings.ToLower(strings.TrimPrefix(w, "#")))
			if issue.Valid() {
				tags = append(tags, string(issue))
				continue
			}
		}
		words = append(words, w)
	}
	return strings.Join(words, " "), tags
}

func trimLine(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
