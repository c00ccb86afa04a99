package drawing

import "fmt"

const siteURL = "https://www.rayon.design/"

func searchTask(shape string) string {
	return fmt.Sprintf(`
0. Start by going to: %[1]s
1. Navigate to the CAD drawing interface by clicking on the "New Model" button on the top right
2. Once in the drawing interface, look for the toolbar at the bottom center of the screen (DO NOT USE THE QUICK HELP BUTTONS) - this dock bar contains all the drawing elements and tools
3. Some drawing options may be hidden - look for arrow icons that can be clicked to expand additional drawing options
4. Identify tools and methods that can be used to draw a "%[2]s"
5. Document the steps needed to draw a "%[2]s" using the available tools
6. Note any specific parameters or settings required for drawing a "%[2]s"
7. Return a detailed list of steps to draw a "%[2]s" including which buttons to click and actions to take
`, siteURL, shape)
}

func drawTask(shape string) string {
	return fmt.Sprintf(`
1. Go to %[1]s
2. Navigate to the CAD drawing interface by clicking on the "New Model" button on the top right
3. Look for the toolbar at the bottom center of the screen (DO NOT USE THE QUICK HELP BUTTONS) - this dock bar contains all the drawing elements and tools
4. Some drawing options may be hidden - look for arrow icons that can be clicked to expand additional drawing options
5. Identify the tools needed to draw a "%[2]s"
6. Select the appropriate tool for drawing a "%[2]s"
7. Draw the "%[2]s" in the center of the canvas
8. If applicable, adjust the size and properties of the "%[2]s" to make it clearly visible
9. Save the drawing if possible
`, siteURL, shape)
}
