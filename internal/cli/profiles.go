package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/photoledger/internal/config"
)

// newProfilesCmd создаёт команду для управления профилями.
func newProfilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Управление именованными профилями",
		Long: `Управление именованными профилями фотобиблиотек.

Профили хранятся в ~/.config/photoledger/profiles/ и запоминают директории
и настройки конвертации одной библиотеки.

Примеры:
  # Сохранить настройки как профиль
  photoledger status --src ./Organized --out ./Converted --archive ./HEIC_Archive --save-profile family

  # Запустить полный цикл по профилю
  photoledger run --profile family

  # Список профилей
  photoledger profiles list`,
	}

	cmd.AddCommand(newProfilesListCmd())
	cmd.AddCommand(newProfilesShowCmd())
	cmd.AddCommand(newProfilesDeleteCmd())

	return cmd
}

// newProfilesListCmd создаёт команду для списка профилей.
func newProfilesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Показать список сохранённых профилей",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := config.ListProfiles()
			if err != nil {
				return fmt.Errorf("ошибка получения списка профилей: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(profiles) == 0 {
				fmt.Fprintln(out, "Профили не найдены.")
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Сохраните профиль флагом --save-profile:")
				fmt.Fprintln(out, "  photoledger status --src ./Organized --out ./Converted --save-profile family")
				return nil
			}

			fmt.Fprintf(out, "📦 Сохранённые профили (%d):\n\n", len(profiles))

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ИМЯ\tИСХОДНИКИ\tJPEG\tКАЧЕСТВО")
			fmt.Fprintln(w, "---\t---------\t----\t--------")

			for _, p := range profiles {
				src, dst, quality := "-", "-", "-"
				if fc := p.Config; fc != nil {
					if fc.Paths != nil {
						src = orDash(fc.Paths.Source)
						dst = orDash(fc.Paths.Output)
					}
					if fc.Conversion != nil && fc.Conversion.Quality > 0 {
						quality = fmt.Sprintf("%d", fc.Conversion.Quality)
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, src, dst, quality)
			}
			return w.Flush()
		},
	}
}

// newProfilesShowCmd создаёт команду для отображения профиля.
func newProfilesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Показать содержимое профиля",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, path, err := config.LoadProfile(args[0])
			if err != nil {
				return err
			}
			data, err := fc.Marshal()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "📦 Профиль: %s\n", args[0])
			fmt.Fprintf(out, "📁 Путь: %s\n\n", path)
			fmt.Fprint(out, string(data))
			return nil
		},
	}
}

// newProfilesDeleteCmd создаёт команду для удаления профиля.
func newProfilesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [name]",
		Short: "Удалить профиль",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.DeleteProfile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Профиль '%s' удалён\n", args[0])
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

/*
Возможные расширения:
- profiles export / import
*/
