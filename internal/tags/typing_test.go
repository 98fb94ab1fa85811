package tags

import "testing"

func TestClassifyURLWins(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   ClassifyInput
		want string
	}{
		{
			name: "team url",
			in:   ClassifyInput{Name: "Иванов Иван", URL: "https://championat.com/football/teams/123.html"},
			want: TypeTeam,
		},
		{
			name: "player url",
			in:   ClassifyInput{Name: "Зенит", URL: "https://championat.com/hockey/players/456.html"},
			want: TypePlayer,
		},
		{
			name: "tournament url",
			in:   ClassifyInput{Name: "Что-то", URL: "https://championat.com/football/tournament/rpl.html"},
			want: TypeTournament,
		},
		{
			name: "sport section",
			in:   ClassifyInput{Name: "Хоккей", URL: "https://championat.com/hockey/"},
			want: TypeSport,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tc.in); got != tc.want {
				t.Fatalf("Classify(%+v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestClassifyTeamBeforePlayer(t *testing.T) {
	t.Parallel()

	// Title-case two-word name, but the club prefix marks it as a team.
	if got := Classify(ClassifyInput{Name: "ФК Краснодар"}); got != TypeTeam {
		t.Fatalf("expected team, got %q", got)
	}
	if got := Classify(ClassifyInput{Name: "Spartak FC"}); got != TypeTeam {
		t.Fatalf("expected team for FC abbreviation, got %q", got)
	}
	if got := Classify(ClassifyInput{Name: "ЦСКА"}); got != TypeTeam {
		t.Fatalf("expected team for known club, got %q", got)
	}
}

func TestClassifyPlayerRoleMarker(t *testing.T) {
	t.Parallel()

	context := "Нападающий Артём Дзюба забил два гола в матче"
	if got := Classify(ClassifyInput{Name: "Артём Дзюба", Context: context}); got != TypePlayer {
		t.Fatalf("expected player with role marker, got %q", got)
	}

	// Marker present but far outside the window around the mention.
	far := "вратарь " + repeatRune('а', 120) + " Артём Дзюба сообщил"
	if got := Classify(ClassifyInput{Name: "Артём Дзюба", Context: far}); got != TypeUnknown {
		t.Fatalf("expected unknown when marker is out of window, got %q", got)
	}
}

func TestClassifyTournamentMarkers(t *testing.T) {
	t.Parallel()

	if got := Classify(ClassifyInput{Name: "Лига чемпионов"}); got != TypeTournament {
		t.Fatalf("expected tournament, got %q", got)
	}
	if got := Classify(ClassifyInput{Name: "Кубок Гагарина"}); got != TypeTournament {
		t.Fatalf("expected tournament, got %q", got)
	}
}

func TestShouldUpgrade(t *testing.T) {
	t.Parallel()

	if !ShouldUpgrade(TypeUnknown, TypeTeam) {
		t.Fatalf("unknown must upgrade to team")
	}
	if ShouldUpgrade(TypeTeam, TypePlayer) {
		t.Fatalf("specific type must never flip")
	}
	if ShouldUpgrade(TypeTeam, TypeUnknown) {
		t.Fatalf("specific type must not downgrade")
	}
}

func repeatRune(r rune, n int) string {
	runes := make([]rune, n)
	for i := range runes {
		runes[i] = r
	}
	return string(runes)
}
