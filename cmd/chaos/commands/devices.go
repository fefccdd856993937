package commands

import (
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/spf13/cobra"

	"github.com/chaosbotics/chaos/pkg/cli"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio capture and playback devices",
	Long: `List the audio devices miniaudio can see. The capture index feeds
CHAOS_MIC_INDEX; -1 selects the system default.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDevices()
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices() error {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("devices: init audio context: %w", err)
	}
	defer func() {
		ctx.Uninit()
		ctx.Free()
	}()

	styles := cli.NewStyles(cli.DefaultTheme)

	kinds := []struct {
		label string
		kind  malgo.DeviceType
	}{
		{"Capture", malgo.Capture},
		{"Playback", malgo.Playback},
	}
	for _, k := range kinds {
		infos, err := ctx.Devices(k.kind)
		if err != nil {
			return fmt.Errorf("devices: list %s devices: %w", k.label, err)
		}
		fmt.Println(styles.Label.Render(k.label))
		if len(infos) == 0 {
			fmt.Println(styles.Help.Render("  (none)"))
			continue
		}
		names := make([]string, len(infos))
		mark := -1
		for i, info := range infos {
			names[i] = info.Name()
			if info.IsDefault != 0 {
				mark = i
			}
		}
		fmt.Print(styles.NumberedList(names, mark))
	}
	fmt.Println(styles.Help.Render("* system default"))
	return nil
}
